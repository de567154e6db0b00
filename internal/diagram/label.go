package diagram

import (
	"fmt"
	"html"
	"strings"

	"erdsql/internal/introspect"
)

// Label renders the Graphviz HTML-like label of t: a header cell in the
// table's color followed by one port per column. The result goes between
// < and > in DOT.
func Label(t introspect.Table, color, textColor string) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`)
	fmt.Fprintf(&b, `<TR><TD ALIGN="center" BGCOLOR="%s"><FONT COLOR="%s" POINT-SIZE="24">%s</FONT></TD></TR>`,
		html.EscapeString(color), html.EscapeString(textColor), html.EscapeString(t.Name))
	for _, c := range t.Columns {
		text := c.Name
		if c.Type != "" {
			text += " (" + c.Type + ")"
		}
		if c.PK {
			text = "<B>" + html.EscapeString(text) + "</B>"
		} else {
			text = html.EscapeString(text)
		}
		fmt.Fprintf(&b, `<TR><TD ALIGN="left" PORT="%s"><FONT POINT-SIZE="18">%s</FONT></TD></TR>`,
			Sanitize(c.Name), text)
	}
	b.WriteString(`</TABLE>`)
	return b.String()
}
