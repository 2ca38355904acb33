package transcription

import (
	"fmt"
	"strings"
)

type languageInfo struct {
	name         string
	speakerLabel string
}

var languages = map[string]languageInfo{
	"ru": {name: "Russian", speakerLabel: "Спикер"},
	"en": {name: "English", speakerLabel: "Speaker"},
}

func lookupLanguage(code string) languageInfo {
	if info, ok := languages[strings.ToLower(code)]; ok {
		return info
	}
	return languageInfo{name: code, speakerLabel: "Speaker"}
}

// BuildInstruction renders the per-segment instruction. position is 1-based.
func BuildInstruction(position, total int, language string, speakerLabels bool) string {
	lang := lookupLanguage(language)

	var b strings.Builder
	fmt.Fprintf(&b, "TASK: Transcribe this audio segment verbatim into %s.\n", lang.name)
	fmt.Fprintf(&b, "CONTEXT: This is part %d of %d of a longer recording.\n\n", position, total)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Transcribe exactly what is said. Do not summarize or paraphrase.\n")
	b.WriteString("2. If a sentence is cut off at the start or the end of the segment, keep the partial words as heard instead of dropping them.\n")
	if speakerLabels {
		fmt.Fprintf(&b, "3. Label speaker turns (e.g. **%[1]s 1:**, **%[1]s 2:**) when they can be told apart; prefer continuous text when unsure.\n", lang.speakerLabel)
	} else {
		b.WriteString("3. Do not label speakers.\n")
	}
	b.WriteString("4. Do not add part numbers, \"end of part\" notes or any other segment markers. Output only the transcript.\n")
	b.WriteString("5. Use Markdown; start a new line for every new speaker.\n")
	return b.String()
}
