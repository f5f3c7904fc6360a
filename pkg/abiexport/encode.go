package abiexport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf16"
)

const (
	itemSeparator = ", "
	keySeparator  = ": "
)

type container struct {
	object bool
	tokens int
}

// encodeSingleLine re-encodes raw JSON on one line in the layout of Python's
// json.dumps defaults: ", " and ": " separators, with every non-printable or
// non-ASCII rune escaped as \uXXXX. Keys keep their order and numbers keep
// their literal text.
func encodeSingleLine(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var (
		out   bytes.Buffer
		stack []container
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		if delim, ok := tok.(json.Delim); ok && (delim == ']' || delim == '}') {
			stack = stack[:len(stack)-1]
			out.WriteByte(byte(delim))

			continue
		}

		if n := len(stack); n > 0 {
			top := &stack[n-1]

			switch {
			case top.object && top.tokens%2 == 1:
				out.WriteString(keySeparator)
			case top.tokens > 0:
				out.WriteString(itemSeparator)
			}

			top.tokens++
		}

		switch val := tok.(type) {
		case json.Delim:
			out.WriteByte(byte(val))
			stack = append(stack, container{object: val == '{'})
		case string:
			writeASCIIString(&out, val)
		case json.Number:
			out.WriteString(val.String())
		case bool:
			out.WriteString(strconv.FormatBool(val))
		case nil:
			out.WriteString("null")
		}
	}

	return out.Bytes(), nil
}

func writeASCIIString(out *bytes.Buffer, str string) {
	out.WriteByte('"')

	for _, r := range str {
		switch r {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		case '\b':
			out.WriteString(`\b`)
		case '\f':
			out.WriteString(`\f`)
		default:
			switch {
			case r >= ' ' && r <= '~':
				out.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(out, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(out, `\u%04x`, r)
			}
		}
	}

	out.WriteByte('"')
}
