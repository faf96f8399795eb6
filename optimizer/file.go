package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

type textDecoder struct {
	name   string
	decode func([]byte) (string, error)
}

// Spreadsheet exports from Windows tools are often cp1252 rather than UTF-8.
func textDecoders() []textDecoder {
	return []textDecoder{
		{name: "utf-8", decode: decodeUTF8},
		{name: "windows-1252", decode: strictDecoder(charmap.Windows1252)},
		{name: "iso-8859-1", decode: strictDecoder(charmap.ISO8859_1)},
	}
}

// strictDecoder fails when cm had to substitute U+FFFD for a byte it does not
// define, so the next candidate gets a chance.
func strictDecoder(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		text, err := cm.NewDecoder().String(string(b))
		if err != nil {
			return "", err
		}
		if strings.ContainsRune(text, utf8.RuneError) {
			return "", fmt.Errorf("%s: undefined byte", cm)
		}
		return text, nil
	}
}

func decodeUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.New("invalid utf-8")
	}
	return string(b), nil
}

// DecodeText turns an uploaded file into text. A UTF-8 byte order mark is
// dropped. Content with NUL bytes is treated as binary and rejected with
// ErrFileRead.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%w: binary content", ErrFileRead)
	}
	for _, dec := range textDecoders() {
		text, err := dec.decode(data)
		if err == nil {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported encoding", ErrFileRead)
}

// ReadText reads r fully and decodes it with DecodeText.
func ReadText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	return DecodeText(data)
}

// OptimizeFile uploads a traffic CSV as multipart fields file and
// intersection_type, then normalizes the dataset the optimizer sends back.
func (c *Client) OptimizeFile(ctx context.Context, topology models.Topology, filename string, r io.Reader) (*RecordSet, error) {
	if !topology.Valid() {
		return nil, fmt.Errorf("%w: unknown intersection type %q", models.ErrInvalidRequest, topology)
	}
	text, err := ReadText(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.WriteString(fw, text); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.WriteField("intersection_type", topology.String()); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	status, resp, err := c.post(ctx, PathOptimize, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		if c.mockFallback && errors.Is(err, ErrUnavailable) {
			log.Printf("optimizer unreachable endpoint=%s file=%s, serving mock sample", PathOptimize, filename)
			mockFallbacks.WithLabelValues(PathOptimize).Inc()
			return c.mockSet(topology), nil
		}
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &RemoteError{StatusCode: status, Body: resp}
	}

	records, err := decodeDataset(resp, topology)
	if err != nil {
		malformedResponses.WithLabelValues(PathOptimize).Inc()
		return nil, err
	}
	return &RecordSet{Records: records, Topology: topology, Source: models.SourceOptimizer}, nil
}
