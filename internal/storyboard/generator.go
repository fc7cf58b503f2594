// Package storyboard derives a bounded, ordered scene list from free-text
// scripts. Generation is deterministic and never fails: degenerate input
// degrades to a fixed fallback storyboard.
package storyboard

import (
	"regexp"
	"strings"
	"unicode"

	"storyreel/server/internal/model"
)

const (
	// SceneDuration is the fixed per-scene duration in time units.
	SceneDuration = 9
	// VisualStyle is the constant style tag carried by every scene.
	VisualStyle = "cinematic"

	maxScenes          = 7
	minScriptLen       = 10
	maxTitleLen        = 100
	maxSummaryLen      = 200
	maxDescriptionLen  = 300
	minSentenceContent = 20
	targetSceneCount   = 5

	placeholderTitle = "Untitled Story"
	placeholderText  = "A short story brought to life as a generated video."
)

var (
	blankLineRe = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
)

var fallbackLabels = [targetSceneCount]string{
	"Opening scene",
	"Development",
	"Action",
	"Progress",
	"Conclusion",
}

// Generate turns a script into a storyboard of 1 to 7 contiguous scenes.
// Stages are tried in order: paragraph split, sentence grouping, fixed-width
// chunking, fixed fallback. Scripts shorter than 10 trimmed characters skip
// straight to the fallback.
func Generate(script string) model.Storyboard {
	trimmed := strings.TrimSpace(script)

	var descriptions []string
	if len([]rune(trimmed)) >= minScriptLen {
		descriptions = paragraphDescriptions(trimmed)
		if descriptions == nil {
			descriptions = sentenceDescriptions(trimmed)
		}
		if descriptions == nil {
			descriptions = chunkDescriptions(trimmed)
		}
	}
	if len(descriptions) == 0 {
		descriptions = fallbackDescriptions(trimmed)
	}

	scenes := make([]model.Scene, 0, len(descriptions))
	for i, desc := range descriptions {
		scenes = append(scenes, model.Scene{
			SceneNumber: i + 1,
			Description: truncate(desc, maxDescriptionLen),
			Duration:    SceneDuration,
			VisualStyle: VisualStyle,
		})
	}

	return model.Storyboard{
		Title:   deriveTitle(trimmed),
		Summary: truncate(trimmed, maxSummaryLen),
		Scenes:  scenes,
	}
}

// paragraphDescriptions splits on blank lines. It only applies when the script
// has at least three paragraphs; the first seven become scenes verbatim.
func paragraphDescriptions(script string) []string {
	parts := blankLineRe.Split(script, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) < 3 {
		return nil
	}
	if len(paragraphs) > maxScenes {
		paragraphs = paragraphs[:maxScenes]
	}
	return paragraphs
}

// sentenceDescriptions splits on sentence-ending punctuation and groups the
// surviving sentences into ceil(n/5)-sized chunks, targeting five scenes.
// Depending on how sentences distribute this can land anywhere in 1..7.
func sentenceDescriptions(script string) []string {
	parts := sentenceRe.Split(script, -1)
	sentences := make([]string, 0, len(parts))
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if contentLen(s) > minSentenceContent {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) < 3 {
		return nil
	}

	groupSize := (len(sentences) + targetSceneCount - 1) / targetSceneCount
	descriptions := make([]string, 0, targetSceneCount)
	for i := 0; i < len(sentences) && len(descriptions) < maxScenes; i += groupSize {
		end := i + groupSize
		if end > len(sentences) {
			end = len(sentences)
		}
		descriptions = append(descriptions, strings.Join(sentences[i:end], ". ")+".")
	}
	return descriptions
}

// chunkDescriptions carves the script into fixed-width slices of
// max(200, len/5) characters, up to seven scenes.
func chunkDescriptions(script string) []string {
	runes := []rune(script)
	size := len(runes) / targetSceneCount
	if size < 200 {
		size = 200
	}

	var descriptions []string
	for offset := 0; offset < len(runes) && len(descriptions) < maxScenes; offset += size {
		end := offset + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[offset:end]))
		if chunk != "" {
			descriptions = append(descriptions, chunk)
		}
	}
	return descriptions
}

// fallbackDescriptions always yields the canonical five-scene storyboard.
func fallbackDescriptions(script string) []string {
	base := truncate(script, maxSummaryLen)
	if base == "" {
		base = placeholderText
	}
	descriptions := make([]string, 0, len(fallbackLabels))
	for _, label := range fallbackLabels {
		descriptions = append(descriptions, label+": "+base)
	}
	return descriptions
}

// deriveTitle takes the first non-empty line of the script, or the text before
// the first period when the script is a single line.
func deriveTitle(script string) string {
	if script == "" {
		return placeholderTitle
	}
	var line string
	for _, l := range strings.Split(script, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			line = l
			break
		}
	}
	if line == "" {
		return placeholderTitle
	}
	if !strings.Contains(script, "\n") {
		if idx := strings.Index(line, "."); idx > 0 {
			line = line[:idx]
		}
	}
	return truncate(line, maxTitleLen)
}

func contentLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
