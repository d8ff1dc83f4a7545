package datatable

import (
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
)

const DefaultCacheTTL = 5 * time.Minute

// Request parameter keys. Both the DataTables bracket notation and the dotted notation are accepted.
var (
	drawKeys        = []string{"draw"}
	startKeys       = []string{"start"}
	lengthKeys      = []string{"length"}
	searchKeys      = []string{"search[value]", "search.value", "search"}
	orderColumnKeys = []string{"order[0][column]", "order.0.column"}
	orderDirKeys    = []string{"order[0][dir]", "order.0.dir"}
)

// Config is the server-side configuration shared by all datasets.
type Config struct {
	AllowedLengths []int `validate:"required,min=1,dive,gt=0"`
	DefaultLength  int   `validate:"gt=0"`
	CacheEnabled   bool
	CacheTTL       time.Duration
}

// ConfigFrom maps the app datatable settings to the engine config.
func ConfigFrom(conf core.DatatableConfig) Config {
	return Config{
		AllowedLengths: conf.AllowedLengths,
		DefaultLength:  conf.DefaultLength,
		CacheEnabled:   conf.CacheEnabled,
		CacheTTL:       conf.CacheTTL,
	}
}

func DefaultConfig() Config {
	return Config{
		AllowedLengths: []int{10, 15, 25, 50, 100},
		DefaultLength:  10,
		CacheEnabled:   true,
		CacheTTL:       DefaultCacheTTL,
	}
}

func (conf Config) validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		if !c.allowsLength(c.DefaultLength) {
			sl.ReportError(c.DefaultLength, "DefaultLength", "DefaultLength", "oneofallowed", "")
		}
	}, Config{})
	return validate.Struct(conf)
}

func (conf Config) allowsLength(n int) bool {
	for _, l := range conf.AllowedLengths {
		if l == n {
			return true
		}
	}
	return false
}

// Request is the validated descriptor of one table request. It is read-only once parsed.
type Request struct {
	Draw        int
	Start       int
	Length      int
	Search      string
	OrderColumn int
	OrderDir    Direction
	Filters     map[string]string // only the filters declared by the dataset
}

// ParseRequest validates the raw request parameters against conf and the dataset declaration.
// Malformed values are silently replaced by their defaults: it never fails.
func ParseRequest(values url.Values, conf Config, ds *Dataset) Request {
	req := Request{
		Draw:        intParam(values, 1, drawKeys...),
		Start:       intParam(values, 0, startKeys...),
		Length:      intParam(values, conf.DefaultLength, lengthKeys...),
		Search:      core.CleanString(param(values, searchKeys...)),
		OrderColumn: intParam(values, -1, orderColumnKeys...),
		Filters:     make(map[string]string, len(ds.Filters)),
	}

	if req.Draw < 1 {
		req.Draw = 1
	}
	if req.Start < 0 {
		req.Start = 0
	}
	if !conf.allowsLength(req.Length) {
		req.Length = conf.DefaultLength
	}

	if dir, ok := ParseDirection(param(values, orderDirKeys...)); ok {
		req.OrderDir = dir
	} else {
		req.OrderDir = ds.DefaultOrder.Dir
	}

	for _, name := range ds.filterNames() {
		if val := core.CleanString(values.Get(name)); val != "" {
			req.Filters[name] = val
		}
	}
	return req
}

// param returns the first non-empty value found for keys.
func param(values url.Values, keys ...string) string {
	for _, key := range keys {
		if val := values.Get(key); val != "" {
			return val
		}
	}
	return ""
}

func intParam(values url.Values, def int, keys ...string) int {
	val := core.CleanString(param(values, keys...))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

