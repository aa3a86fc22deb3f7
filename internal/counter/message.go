package counter

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// summaryKey is the catalog key for the count line.
const summaryKey = "%s contains %d files and directories"

func init() {
	_ = message.SetString(language.English, summaryKey, "%s contains %d files and directories")
	_ = message.SetString(language.Chinese, summaryKey, "%s目录下有%d个文件及文件夹")
}

// Languages lists the tags the summary line is translated into.
var Languages = []language.Tag{language.English, language.Chinese}

// NewPrinter returns a printer for the closest supported language to lang.
// Unknown or empty values fall back to English.
func NewPrinter(lang string) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		return message.NewPrinter(language.English)
	}
	matched, _, _ := language.NewMatcher(Languages).Match(tag)
	base, _ := matched.Base()
	switch base.String() {
	case "zh":
		return message.NewPrinter(language.Chinese)
	default:
		return message.NewPrinter(language.English)
	}
}

// Format renders the human-readable count line for r.
func Format(p *message.Printer, r *Result) string {
	return p.Sprintf(summaryKey, r.Path, r.Count)
}
