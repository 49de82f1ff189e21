package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nikolayk812/artesano/internal/domain"
)

// Request is the transport-neutral view of a notification.
type Request struct {
	Query url.Values
	Body  []byte
}

type body map[string]any

func (r Request) decodeBody() body {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()

	var b body
	if err := dec.Decode(&b); err != nil {
		return nil
	}

	return b
}

// Extractor finds a payment id in one of the places the gateway may put it.
type Extractor func(q url.Values, b body) (string, bool)

func FromQuery(key string) Extractor {
	return func(q url.Values, _ body) (string, bool) {
		id := strings.TrimSpace(q.Get(key))
		return id, id != ""
	}
}

// FromBody walks nested objects, FromBody("data", "id") reads body.data.id.
func FromBody(path ...string) Extractor {
	return func(_ url.Values, b body) (string, bool) {
		var cur any = map[string]any(b)
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur = m[key]
		}
		return scalarString(cur)
	}
}

// DefaultExtractors is tried in order, first hit wins.
var DefaultExtractors = []Extractor{
	FromQuery("id"),
	FromQuery("data.id"),
	FromBody("data", "id"),
	FromBody("id"),
}

func ExtractPaymentID(req Request, extractors ...Extractor) (string, error) {
	if len(extractors) == 0 {
		extractors = DefaultExtractors
	}

	b := req.decodeBody()
	for _, extract := range extractors {
		if id, ok := extract(req.Query, b); ok {
			return id, nil
		}
	}

	return "", domain.ErrMissingPaymentID
}

// IsPaymentTopic is false only when the notification names a topic other than payment.
func IsPaymentTopic(req Request) bool {
	b := req.decodeBody()

	for _, topic := range []Extractor{
		FromQuery("topic"),
		FromQuery("type"),
		FromBody("type"),
		FromBody("topic"),
	} {
		if t, ok := topic(req.Query, b); ok {
			return t == "payment"
		}
	}

	return true
}

func scalarString(v any) (string, bool) {
	var s string

	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = fmt.Sprintf("%.0f", t)
	default:
		return "", false
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}
