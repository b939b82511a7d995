package recovery

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FlattenPageSource renders an Appium-style XML page source as one line per
// meaningful element:
//
//	[android.widget.Button] text='Continue', id='com.app:id/ok', desc='', bounds=[0,0][10,10], clickable=true, enabled=true
//
// Elements with displayed="false" are skipped unless includeInvisible is set,
// as are elements without text, resource-id or content-desc. Input that is
// not XML is returned unchanged.
func FlattenPageSource(src string, includeInvisible bool) string {
	trimmed := strings.TrimSpace(src)
	if !strings.HasPrefix(trimmed, "<") {
		return src
	}

	lines, err := flatten(trimmed, includeInvisible)
	if err != nil {
		return src
	}
	return strings.Join(lines, "\n")
}

func flatten(src string, includeInvisible bool) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(src))
	dec.Strict = false

	var (
		lines    []string
		elements int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		elements++

		attrs := make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			attrs[a.Name.Local] = a.Value
		}
		if !includeInvisible && attrs["displayed"] == "false" {
			continue
		}
		if attrs["text"] == "" && attrs["resource-id"] == "" && attrs["content-desc"] == "" {
			continue
		}

		class := attrs["class"]
		if class == "" {
			class = start.Name.Local
		}
		lines = append(lines, fmt.Sprintf("[%s] text='%s', id='%s', desc='%s', bounds=%s, clickable=%s, enabled=%s",
			class, attrs["text"], attrs["resource-id"], attrs["content-desc"], attrs["bounds"],
			orDefault(attrs["clickable"], "false"), orDefault(attrs["enabled"], "false")))
	}
	if elements == 0 {
		return nil, errors.New("no elements")
	}
	return lines, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
