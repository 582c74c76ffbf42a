package util

import (
	"strings"

	"golang.org/x/text/language"
)

// IetfToIsoLangCode turns an IETF tag ("en-US", "uk") into the POSIX locale name
// lctime expects ("en_US", "uk_UA").
func IetfToIsoLangCode(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil || tag == language.Und {
		return "en_US"
	}

	base, _ := tag.Base()
	region, _ := tag.Region()

	return base.String() + "_" + region.String()
}
