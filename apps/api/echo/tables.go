package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
)

type tableApi struct {
	engine      *datatable.Engine
	registry    *tables.Registry
	invalidator tables.Invalidator
	source      tables.Source
	logger      core.Logger
}

func registerTableAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	engine *datatable.Engine,
	registry *tables.Registry,
	source tables.Source,
	logger core.Logger,
) {
	api := tableApi{
		engine:      engine,
		registry:    registry,
		invalidator: tables.Invalidator{Engine: engine, Registry: registry},
		source:      source,
		logger:      logger,
	}

	tg := g.Group("/tables", jwt)
	tg.GET("", api.list)
	tg.GET("/:name", api.serve)
	tg.POST("/:name", api.serve)

	// the cache lives in this process: out-of-process tools flush it through these
	cg := g.Group("/cache", jwt, adminMiddleware())
	cg.DELETE("", api.flushCache)
	cg.DELETE("/:name", api.flushCache)
}

// Handlers

// list returns the names of the tables the principal may query.
func (api *tableApi) list(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	names := make([]string, 0)
	for _, name := range api.registry.Names() {
		if tbl, _ := api.registry.Lookup(name); tbl.Allows(p.Kind) {
			names = append(names, name)
		}
	}
	return ctx.JSON(http.StatusOK, names)
}

// serve answers a table request; parameters are read from the query string or the url-encoded body.
func (api *tableApi) serve(ctx echo.Context) error {
	tbl, ok := api.registry.Lookup(ctx.Param("name"))
	if !ok {
		return errHttpNotFound
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	if !tbl.Allows(p.Kind) {
		return errHttpForbidden
	}

	values, err := ctx.FormParams()
	if err != nil {
		return &echo.HTTPError{Code: http.StatusBadRequest, Message: "malformed request parameters", Internal: err}
	}

	rctx := ctx.Request().Context()
	req := datatable.ParseRequest(values, api.engine.Config(), tbl.Dataset)
	if noCache(ctx.Request()) {
		if err := api.engine.Invalidate(rctx, p, tbl.Dataset, req); err != nil {
			api.logger.Warn("cached table response not dropped", "error", err, "dataset", tbl.Dataset.Name)
		}
	}

	env := api.engine.Serve(rctx, p, tbl.Dataset, tbl.Base(api.source, p), req)
	if env.Failed() {
		return ctx.JSON(http.StatusInternalServerError, env)
	}
	return ctx.JSON(http.StatusOK, env)
}

// flushCache drops the cached responses of the `:name` table, or of every table.
func (api *tableApi) flushCache(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	name := ctx.Param("name")
	if name == "" {
		if err := api.invalidator.Flush(rctx); err != nil {
			return errors.Wrap(err, "flushing table cache")
		}
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.invalidator.Invalidate(rctx, name); err != nil {
		if errors.Cause(err) == tables.ErrUnknownTable {
			return errHttpNotFound
		}
		return errors.Wrap(err, "invalidating table cache")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// noCache reports whether the client asked for a fresh response, eg. after its own write.
func noCache(r *http.Request) bool {
	for _, directive := range strings.Split(r.Header.Get("Cache-Control"), ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-cache") {
			return true
		}
	}
	return false
}
