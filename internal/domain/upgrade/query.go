package upgrade

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const upperhex = "0123456789ABCDEF"

// EncodeComponent percent-encodes s the way encodeURIComponent does:
// everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped as UTF-8 bytes.
func EncodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// QueryString builds the widget query from the <param> tags inside obj, in document order.
// Missing name or value attributes encode as empty strings.
func QueryString(obj *goquery.Selection) string {
	var pairs []string
	obj.Find("param").Each(func(_ int, param *goquery.Selection) {
		name, _ := param.Attr("name")
		value, _ := param.Attr("value")
		pairs = append(pairs, EncodeComponent(name)+"="+EncodeComponent(value))
	})
	return strings.Join(pairs, "&")
}

// FrameSource joins the object's data URL and query string. The "?" is always present.
func FrameSource(data, query string) string {
	return data + "?" + query
}
