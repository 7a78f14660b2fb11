package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Character budgets for transcript text embedded into prompts, and length
// caps for free-text fields before they are persisted.
const (
	TopicTranscriptBudget   = 600_000
	SummaryTranscriptBudget = 12_000
	ScriptExcerptWords      = 1_500

	TopicTitleMax   = 150
	TopicSummaryMax = 500
	VideoTopicMax   = 200
)

const topicDiscoverySystem = `You are an expert video content analyst. You segment YouTube transcripts into coherent topics and extract any step-by-step instructions they contain. You respond with a single JSON object and nothing else.`

var topicDiscoveryTemplate = template.Must(template.New("topics").Parse(`Analyze the transcript of the video "{{.Title}}" and identify the distinct topics it covers, in order.

For each topic provide:
- "start_time": where the topic begins, as HH:MM:SS
- "title": a short headline for the topic
- "summary": one or two sentences describing it
- "content": a longer description of what is said
- "blueprint_elements": a list of concrete steps or enumerable items mentioned within the topic, or an empty list

Return ONLY a JSON object of the shape:
{"topics": [{"start_time": "00:00:00", "title": "...", "summary": "...", "content": "...", "blueprint_elements": ["..."]}]}

Transcript:
"""
{{.Transcript}}
"""`))

// BuildTopicDiscoveryPrompt fills the topic discovery template, truncating
// the transcript to its stage budget.
func BuildTopicDiscoveryPrompt(title, transcript string) (string, error) {
	return execTemplate(topicDiscoveryTemplate, map[string]string{
		"Title":      title,
		"Transcript": TruncateTranscript(transcript, TopicTranscriptBudget),
	})
}

const summarySystem = `You are an expert video content analyst. You distill YouTube transcripts into a core topic, a main summary, and a structured outline. You respond with a single JSON object and nothing else.`

var summaryTemplate = template.Must(template.New("summary").Parse(`Summarize the video "{{.Title}}" from its transcript below.

Return ONLY a JSON object of the shape:
{"video_topic": "the single core topic in one phrase", "main_summary": "a paragraph summarizing the video", "structured_content": {"sections": [{"heading": "...", "points": ["..."]}]}}

Transcript:
"""
{{.Transcript}}
"""`))

// BuildSummaryPrompt fills the summary template with the budget-truncated
// transcript.
func BuildSummaryPrompt(title, transcript string) (string, error) {
	return execTemplate(summaryTemplate, map[string]string{
		"Title":      title,
		"Transcript": TruncateTranscript(transcript, SummaryTranscriptBudget),
	})
}

const clusteringSystem = `You are an expert content strategist. You group video topics into thematic clusters that together cover a subject, and you order the clusters into a natural viewing sequence. You respond with a single JSON object and nothing else.`

// TopicDigest is one topic as serialized into the clustering prompt. Index
// is the zero-based position the model must reference topics by.
type TopicDigest struct {
	Index     int
	Title     string
	Summary   string
	Blueprint string
}

var clusteringTemplate = template.Must(template.New("clusters").Parse(`Cluster the following topics discovered across the videos of the project "{{.Project}}"{{if .Topic}} (subject: {{.Topic}}){{end}}.

Cluster topics by their underlying subject, not by title similarity. Every topic should land in exactly one cluster. Reference topics by their index.

Return ONLY a JSON object of the shape:
{"clusters": [{"name": "...", "description": "...", "display_order": 1, "topics": [{"index": 0, "rationale": "why this topic belongs here"}]}]}

Topics:
{{range .Digests}}[{{.Index}}] {{.Title}} — {{.Summary}}{{if .Blueprint}} (steps: {{.Blueprint}}){{end}}
{{end}}`))

// BuildClusteringPrompt serializes the whole topic set into one request.
func BuildClusteringPrompt(projectName, projectTopic string, digests []TopicDigest) (string, error) {
	return execTemplate(clusteringTemplate, map[string]any{
		"Project": projectName,
		"Topic":   projectTopic,
		"Digests": digests,
	})
}

// Cluster analysis runs three independent sub-calls per cluster, one per
// aspect. Each shares the same response shape with an aspect-specific twist.
const (
	analysisReadinessSystem = `You are a video production editor. You judge whether a cluster of topics holds enough material to carry a script section. Respond with a single JSON object and nothing else.`
	analysisDensitySystem   = `You are a video production editor. You judge how much overlap and redundancy a cluster of topics contains. Respond with a single JSON object and nothing else.`
	analysisStructureSystem = `You are a video production editor. You judge how the topics of a cluster should be ordered to tell a coherent story. Respond with a single JSON object and nothing else.`
)

var analysisTemplates = map[string]*template.Template{
	AspectReadiness: template.Must(template.New("readiness").Parse(`Assess whether the cluster "{{.Name}}" is ready to be turned into a script section.

Return ONLY a JSON object: {"score": 0-100, "assessment": "...", "missing_elements": ["..."]}

{{.Digest}}`)),
	AspectDensity: template.Must(template.New("density").Parse(`Assess how much redundancy the cluster "{{.Name}}" contains.

Return ONLY a JSON object: {"score": 0-100, "assessment": "...", "redundancies": ["..."]}

{{.Digest}}`)),
	AspectStructure: template.Must(template.New("structure").Parse(`Propose the order in which the topics of the cluster "{{.Name}}" should appear, referencing topics by their index.

Return ONLY a JSON object: {"score": 0-100, "assessment": "...", "suggested_order": [0, 1]}

{{.Digest}}`)),
}

func analysisSystem(aspect string) string {
	switch aspect {
	case AspectDensity:
		return analysisDensitySystem
	case AspectStructure:
		return analysisStructureSystem
	default:
		return analysisReadinessSystem
	}
}

// BuildAnalysisPrompt fills the template for one analysis aspect.
func BuildAnalysisPrompt(aspect, clusterName string, digests []TopicDigest) (string, error) {
	tmpl, ok := analysisTemplates[aspect]
	if !ok {
		return "", fmt.Errorf("unknown analysis aspect: %s", aspect)
	}

	var sb strings.Builder
	sb.WriteString("Topics:\n")
	for _, d := range digests {
		fmt.Fprintf(&sb, "[%d] %s — %s\n", d.Index, d.Title, d.Summary)
	}

	return execTemplate(tmpl, map[string]string{
		"Name":   clusterName,
		"Digest": sb.String(),
	})
}

const scriptSystem = `You are a professional YouTube scriptwriter. You write engaging long-form narrative scripts in Markdown, grounded in the source material you are given. Structure every script as hook, introduction, body, and outro.`

// ScriptSource is one video's contribution to the synthesis prompt.
type ScriptSource struct {
	Title   string
	Channel string
	Excerpt string
}

var scriptTemplate = template.Must(template.New("script").Parse(`Write a complete narrative video script about "{{.Topic}}" for the project "{{.Project}}".

Structure the script with these Markdown sections: a hook that grabs attention in the first fifteen seconds, an introduction framing the subject, a body developing the main ideas, and an outro with a closing thought and call to action. Ground every claim in the source material below and reference the source videos where natural.

Source material ({{len .Sources}} videos):
{{range $i, $s := .Sources}}
--- Video {{$i}}: "{{$s.Title}}"{{if $s.Channel}} by {{$s.Channel}}{{end}} ---
{{$s.Excerpt}}
{{end}}`))

// BuildScriptPrompt concatenates per-video excerpts into the synthesis
// prompt. Each excerpt is capped at the per-video word budget.
func BuildScriptPrompt(projectName, projectTopic string, sources []ScriptSource) (string, error) {
	if projectTopic == "" {
		projectTopic = projectName
	}
	capped := make([]ScriptSource, len(sources))
	for i, s := range sources {
		s.Excerpt = TruncateWords(s.Excerpt, ScriptExcerptWords)
		capped[i] = s
	}
	return execTemplate(scriptTemplate, map[string]any{
		"Project": projectName,
		"Topic":   projectTopic,
		"Sources": capped,
	})
}

func execTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}
	return buf.String(), nil
}

// decodeStagePayload strips an optional code fence and unmarshals the
// response into the stage's payload struct. Parse failures are terminal for
// the item in this run.
func decodeStagePayload(raw string, out any) error {
	cleaned := StripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}
