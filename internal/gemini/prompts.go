package gemini

// TranscriptPrompt instructs the model to produce a clean-verbatim transcript
// of an uploaded audio segment.
const TranscriptPrompt = `Task: transcribe this meeting audio using the clean verbatim standard.

Rules:
- Remove filler words, false starts, and repeated words the speaker corrects.
- Drop non-speech sounds such as coughs or laughter without annotating them.
- Identify each speaker turn with the speaker's name followed by a colon. Use
  "Speaker N" when the speaker cannot be identified.
- Start a new line for every speaker turn.
- Output Markdown only. Do not add greetings, introductions, or commentary:
  the response must contain nothing except the transcript itself.`

// SummaryPrompt instructs the model to condense a full transcript into a
// structured meeting summary with an action plan.
const SummaryPrompt = `Role: you are a professional meeting analyst. Read the transcript below and
produce a complete meeting summary and a detailed action plan.

Hard constraint: never include URLs, file names, attachments, or links of any
kind in the response. Output plain Markdown text only, in this structure:

## Meeting Topic
[inferred from the transcript]

## Main Discussion Points
- [point]

## Decisions and Agreements
- [decision]

## Risks and Obstacles Raised
- [risk]

## Open Items Needing Clarification
- [item]

## Action Plan
| Task | Owner | Deadline |
|------|-------|----------|
| [task] | [owner] | [deadline] |

Analyze the transcript and return the result in exactly this format.

TRANSCRIPT:

`

// TaggingPrompt instructs the model to classify a meeting summary into a type
// and topic pair. The response must be a bare JSON object.
const TaggingPrompt = `You classify meetings. Read the meeting summary below and return JSON only:
no Markdown code fences and no explanations.

Return a JSON object with exactly two fields:

1. "meeting_type":
   - "project_meeting": the meeting focuses on a single project with a
     timeline, deliverables, milestones, and explicit task assignments.
   - "recurring_meeting": a weekly or monthly check-in, status update, or
     general progress review not centered on one project.

2. "meeting_topic":
   - "loyalty": loyalty programs, reward points, member perks, VIP care.
   - "membership": member systems, registration, tiers, membership benefits.
   - "operation": internal processes, logistics, inventory, fulfillment,
     customer service operations.
   - "business": sales, revenue, go-to-market strategy, marketing, pricing,
     promotions.
   - "data": data analysis, reporting, metrics, KPIs, analytics, BI, data
     infrastructure.

When the summary covers several topics, pick the dominant one, weighting the
action items and key decisions most heavily.

Expected response shape:
{"meeting_type": "project_meeting", "meeting_topic": "business"}

SUMMARY:

`
