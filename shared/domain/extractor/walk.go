package extractor

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// machine receives the element events of one document.
type machine interface {
	start(name string)
	end(name string)
	text(value string)
}

// walk drives m over every token in r. It checks ctx between tokens so a
// deadline bounds parsing of an arbitrarily large body. Character data is
// buffered until the next tag, so text split by CDATA sections or comments
// reaches m as one value. Whatever was buffered when decoding fails is still
// delivered.
func walk(ctx context.Context, r io.Reader, m machine) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			m.text(text.String())
			text.Reset()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			flush()
			return nil
		}
		if err != nil {
			flush()
			return fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			flush()
			m.start(t.Name.Local)
		case xml.EndElement:
			flush()
			m.end(t.Name.Local)
		case xml.CharData:
			text.Write(t)
		}
	}
}
