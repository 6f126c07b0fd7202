package api

import "net/http"

func handleGetSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.SchemaSource == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema source is not configured", false, nil)
		return
	}
	schema, err := deps.SchemaSource.Load(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_LOAD_FAILED", "failed to load schema", true, map[string]any{
			"source":  deps.SchemaSource.Name(),
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source": deps.SchemaSource.Name(),
		"schema": schema,
	})
}
