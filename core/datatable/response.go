package datatable

import "encoding/json"

// FailureMessage is the only error detail ever returned to clients.
const FailureMessage = "An error occurred while processing your request."

// Envelope is the response sent back to the table renderer.
type Envelope struct {
	Draw            int           `json:"draw"`
	RecordsTotal    int           `json:"recordsTotal"`
	RecordsFiltered int           `json:"recordsFiltered"`
	Data            []interface{} `json:"data"`
	Error           string        `json:"error,omitempty"`
}

func newEnvelope(draw, total, filtered int, data []interface{}) Envelope {
	if data == nil {
		data = make([]interface{}, 0)
	}
	return Envelope{
		Draw:            draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            data,
	}
}

func failedEnvelope(draw int) Envelope {
	if draw < 1 {
		draw = 1
	}
	env := newEnvelope(draw, 0, 0, nil)
	env.Error = FailureMessage
	return env
}

// Failed reports whether the envelope is the degraded response of a failed request.
func (env Envelope) Failed() bool {
	return env.Error != ""
}

// cachedEnvelope keeps the encoded records untouched so a cache hit renders the exact same bytes.
type cachedEnvelope struct {
	RecordsTotal    int               `json:"recordsTotal"`
	RecordsFiltered int               `json:"recordsFiltered"`
	Data            []json.RawMessage `json:"data"`
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// decodeEnvelope decodes a cached envelope, stamping it with the current draw.
func decodeEnvelope(b []byte, draw int) (Envelope, error) {
	var cached cachedEnvelope
	if err := json.Unmarshal(b, &cached); err != nil {
		return Envelope{}, err
	}
	data := make([]interface{}, 0, len(cached.Data))
	for _, raw := range cached.Data {
		data = append(data, raw)
	}
	return newEnvelope(draw, cached.RecordsTotal, cached.RecordsFiltered, data), nil
}
