// Package format renders assembled digest content into Slack message text.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Section is one titled block of digest lines.
type Section struct {
	Title string
	Lines []string
}

// TimeDesc describes the reporting window in compact form, e.g. "past 24h"
// or "past 2d 6h".
func TimeDesc(hoursBack int) string {
	if hoursBack == 24 {
		return "past 24h"
	}
	if hoursBack < 24 {
		return fmt.Sprintf("past %dh", hoursBack)
	}
	days := hoursBack / 24
	rem := hoursBack % 24
	if rem == 0 {
		return fmt.Sprintf("past %dd", days)
	}
	return fmt.Sprintf("past %dd %dh", days, rem)
}

// Header renders the digest title line. The window start is shown in the
// configured timezone with its abbreviation, e.g.
//
//	*Orbit Support Digest* (past 24h – since 2024-03-10 04:00 EST)
func Header(productName string, hoursBack int, since time.Time, loc *time.Location) string {
	local := since.In(loc)
	return fmt.Sprintf("*%s Support Digest* (%s – since %s %s)",
		productName, TimeDesc(hoursBack), local.Format("2006-01-02 15:04"), local.Format("MST"))
}

// Digest joins the header and sections into the final message. Sections
// without lines are skipped; when every section is empty the result is the
// empty string and no digest should be sent.
func Digest(header string, sections []Section) string {
	var blocks []string
	for _, s := range sections {
		if len(s.Lines) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("*%s*\n%s", s.Title, strings.Join(s.Lines, "\n")))
	}
	if len(blocks) == 0 {
		return ""
	}
	return header + "\n\n" + strings.Join(blocks, "\n\n")
}
