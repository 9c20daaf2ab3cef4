package metadata

import (
	"bytes"

	"github.com/segmentio/encoding/json"

	"github.com/santhosh0000000/crossref-API/internal/models"
)

// decodeWork reads the fields of interest from a Crossref work message.
// It reports false when msg is not a JSON object. Individual members that
// are absent or of the wrong shape become missing values.
func decodeWork(msg json.RawMessage) (models.PublicationMetadata, bool) {
	var work map[string]json.RawMessage
	if kind(msg) != '{' {
		return models.PublicationMetadata{}, false
	}
	if err := json.Unmarshal(msg, &work); err != nil {
		return models.PublicationMetadata{}, false
	}

	return models.PublicationMetadata{
		Type:            scalar(work["type"]),
		ContainerTitle:  stringList(work["container-title"]),
		Title:           stringList(work["title"]),
		Volume:          scalar(work["volume"]),
		FirstPage:       scalar(work["page"]),
		PublishedOnline: publishedOnline(work["published-online"]),
		Authors:         authors(work["author"]),
		Publisher:       scalar(work["publisher"]),
	}, true
}

// kind returns the first significant byte of a JSON value, 0 if empty
func kind(raw json.RawMessage) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// scalar coerces a JSON string, number or boolean to its string form.
// Null, objects and arrays are missing.
func scalar(raw json.RawMessage) models.Optional[string] {
	switch k := kind(raw); {
	case k == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.None[string]()
		}
		return models.Some(s)
	case k == '-' || (k >= '0' && k <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return models.None[string]()
		}
		return models.Some(n.String())
	case k == 't' || k == 'f':
		return models.Some(string(bytes.TrimSpace(raw)))
	default:
		return models.None[string]()
	}
}

// stringList decodes a JSON array of scalars. A value that is not an array
// is missing; non-scalar elements are skipped.
func stringList(raw json.RawMessage) models.Optional[[]string] {
	elems, ok := array(raw)
	if !ok {
		return models.None[[]string]()
	}
	list := make([]string, 0, len(elems))
	for _, e := range elems {
		if s, ok := scalar(e).Get(); ok {
			list = append(list, s)
		}
	}
	return models.Some(list)
}

func array(raw json.RawMessage) ([]json.RawMessage, bool) {
	if kind(raw) != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if kind(raw) != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// publishedOnline decodes {"date-parts": [[2020, 5, 1]]}. The value is
// present whenever published-online is an object; date-parts that are
// absent or malformed yield an empty DateParts.
func publishedOnline(raw json.RawMessage) models.Optional[models.DateParts] {
	obj, ok := object(raw)
	if !ok {
		return models.None[models.DateParts]()
	}

	parts := models.DateParts{}
	outer, ok := array(obj["date-parts"])
	if !ok {
		return models.Some(parts)
	}
	for _, o := range outer {
		inner, ok := array(o)
		if !ok {
			continue
		}
		seq := make([]models.DatePart, 0, len(inner))
		for _, e := range inner {
			seq = append(seq, scalar(e))
		}
		parts = append(parts, seq)
	}
	return models.Some(parts)
}

// authors decodes the author list; entries that are not objects are
// skipped.
func authors(raw json.RawMessage) models.Optional[[]models.Author] {
	elems, ok := array(raw)
	if !ok {
		return models.None[[]models.Author]()
	}
	list := make([]models.Author, 0, len(elems))
	for _, e := range elems {
		obj, ok := object(e)
		if !ok {
			continue
		}
		list = append(list, models.Author{
			Given:  scalar(obj["given"]),
			Family: scalar(obj["family"]),
		})
	}
	return models.Some(list)
}
