package engine

// LLM prompt templates — data only, no logic.

// promptAnswer answers a question from retrieved knowledge-base passages.
// Args: current date, format instruction, question, numbered passages.
const promptAnswer = `You are a research assistant. Answer the question using ONLY the passages below.
The passages come from web pages, YouTube transcripts and notes collected earlier.

Current date: %s

%s

Respond with valid JSON only (no markdown, no ` + "`" + `json` + "`" + ` block):
{
  "answer": "Plain-text answer shaped by the FORMAT above. No markdown. No citation markers.",
  "facts": [
    {"point": "Specific fact as a complete sentence.", "sources": [1, 2]}
  ]
}

Rules:
- answer: plain text, NO markdown (no **, ##, -, *), NO [N] citation markers
- facts: up to 6 key points, each with 1-based passage indices
- Answer in the SAME LANGUAGE as the question
- If the passages do not contain the answer, say so in "answer" and return an empty "facts" list
- Do NOT invent information not present in the passages

Question: %s

Passages:
%s`

// promptSystem is the system message for every knowledge-base completion.
const promptSystem = "You answer strictly from supplied sources and always reply with a single JSON object."

// answerInstructions shape the "answer" field by question type.
var answerInstructions = map[QueryType]string{
	QtFact:       `FORMAT: One or two sentences with the specific data point requested. Nothing more.`,
	QtComparison: `FORMAT: Contrast the compared things criterion by criterion in 3-5 sentences, then one sentence on when to choose which.`,
	QtList:       `FORMAT: Name every matching item found in the passages, separated by semicolons, most relevant first.`,
	QtHowTo:      `FORMAT: The steps in order, each as one short sentence starting with "Step N:".`,
	QtGeneral:    `FORMAT: Direct 2-4 sentence answer with the specific details the passages give.`,
}
