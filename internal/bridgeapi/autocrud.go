package bridgeapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/internal/telemetry"
	"github.com/cookieshake/santokit-sub000/pkg/idgen"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/schema"
	"github.com/cookieshake/santokit-sub000/pkg/sqlbuilder"
)

// handleAutoCRUD services db/<table>/<op>: it resolves the table and its
// permission rule, checks the caller against that rule (pushing an owner
// predicate into the WHERE clause), renders SQL through sqlbuilder, and
// executes it against the table's connection pool.
func (h *Handler) handleAutoCRUD(ctx context.Context, reqCtx RequestContext, route Route, params map[string]any) (CallResponse, error) {
	table, ok := reqCtx.Release.Schema.GetTable(route.Table)
	if !ok {
		return CallResponse{}, bridgeerr.NotFound("TABLE_NOT_FOUND", fmt.Sprintf("table %q is not declared", route.Table))
	}

	tp := reqCtx.Release.Permissions.Tables[route.Table]

	crud, err := parseCrudParams(params)
	if err != nil {
		return CallResponse{}, err
	}

	evalCtx := permissions.NewEvalContext().WithAuth(reqCtx.Auth).WithParams(params)
	decision, err := h.Evaluator.Evaluate(&reqCtx.Release.Permissions, route.Table, route.DBOp, evalCtx)
	if err != nil {
		if errors.Is(err, permissions.ErrUnsupportedCondition) {
			return CallResponse{}, bridgeerr.BadRequest("UNSUPPORTED_CONDITION", err.Error())
		}
		return CallResponse{}, bridgeerr.Internal("POLICY_EVAL_FAILED", err.Error())
	}
	if !decision.Allowed {
		return CallResponse{}, bridgeerr.Forbidden("FORBIDDEN", fmt.Sprintf("not permitted to %s %s", route.DBOp, route.Table))
	}

	conn, ok := reqCtx.Release.Schema.Connections[table.Connection]
	if !ok {
		return CallResponse{}, bridgeerr.Internal("UNKNOWN_CONNECTION", fmt.Sprintf("table %q references undeclared connection %q", table.Name, table.Connection))
	}
	pool, err := h.Pools.Get(ctx, conn.DBURL)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("DB_UNAVAILABLE", err.Error())
	}

	switch route.DBOp {
	case permissions.OpSelect:
		return h.handleSelect(ctx, pool, &table, &tp, decision, crud, reqCtx.Auth.Sub)
	case permissions.OpInsert:
		return h.handleInsert(ctx, pool, &table, &tp, crud)
	case permissions.OpUpdate:
		return h.handleUpdate(ctx, pool, &table, &tp, decision, crud, reqCtx.Auth.Sub)
	case permissions.OpDelete:
		return h.handleDelete(ctx, pool, &table, &tp, decision, crud, reqCtx.Auth.Sub)
	default:
		return CallResponse{}, bridgeerr.Internal("UNKNOWN_OP", "unrecognized db operation")
	}
}

type dbExecutor interface {
	Query(ctx context.Context, sql string, args ...any) (pgxRows, error)
}

func (h *Handler) handleSelect(ctx context.Context, pool dbExecutor, table *schema.Table, tp *permissions.TablePermissions, decision permissions.Decision, crud sqlbuilder.CrudParams, ownerSub string) (CallResponse, error) {
	candidates := table.SelectableColumns()
	if !crud.Select.All {
		candidates = crud.Select.Columns
	}
	columns := permissions.VisibleColumns(tp, candidates)
	if len(columns) == 0 {
		return CallResponse{}, bridgeerr.Forbidden("NO_VISIBLE_COLUMNS", "no requested column is visible to this caller")
	}

	extra := h.ownerConjunct(decision, ownerSub)

	sql, args, err := sqlbuilder.BuildSelect(table.Name, columns, crud.Where, extra, crud.OrderBy, crud.Limit, crud.Offset)
	if err != nil {
		return CallResponse{}, bridgeerr.BadRequest("INVALID_WHERE", err.Error())
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("QUERY_FAILED", err.Error())
	}
	defer rows.Close()

	result, err := projectRows(rows)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("ROW_SCAN_FAILED", err.Error())
	}

	return CallResponse{Data: result, Meta: CallMeta{Count: len(result)}}, nil
}

func (h *Handler) handleInsert(ctx context.Context, pool dbExecutor, table *schema.Table, tp *permissions.TablePermissions, crud sqlbuilder.CrudParams) (CallResponse, error) {
	if len(crud.Data) == 0 {
		return CallResponse{}, bridgeerr.BadRequest("EMPTY_INSERT", "insert requires at least one column of data")
	}

	data := make(map[string]any, len(crud.Data))
	for col, v := range crud.Data {
		data[col] = v
	}

	idName := table.ID.Name
	strategy := table.ID.Generate
	if strategy == "" {
		strategy = schema.DefaultIDStrategy
	}

	_, callerSuppliedID := data[idName]
	switch {
	case strategy.BridgeGenerates():
		if callerSuppliedID {
			return CallResponse{}, bridgeerr.BadRequest("ID_NOT_ALLOWED", fmt.Sprintf("column %q is generated by the bridge and must not be supplied", idName))
		}
		generated, err := idgen.Generate(strategy)
		if err != nil {
			return CallResponse{}, bridgeerr.Internal("ID_GENERATION_FAILED", err.Error())
		}
		data[idName] = generated
	case strategy.DBGenerates():
		if callerSuppliedID {
			return CallResponse{}, bridgeerr.BadRequest("ID_NOT_ALLOWED", fmt.Sprintf("column %q is generated by the database and must not be supplied", idName))
		}
	case strategy.ClientProvides():
		if !callerSuppliedID {
			return CallResponse{}, bridgeerr.BadRequest("ID_REQUIRED", fmt.Sprintf("column %q must be supplied by the caller", idName))
		}
	}

	cols := make([]string, 0, len(data))
	for col := range data {
		cols = append(cols, col)
	}
	writable := permissions.WritableColumns(tp, permissions.OpInsert, cols)
	writableSet := toSet(writable)
	for col := range data {
		if col == idName {
			continue
		}
		if !writableSet[col] {
			return CallResponse{}, bridgeerr.Forbidden("COLUMN_NOT_WRITABLE", fmt.Sprintf("column %q is not writable by this caller", col))
		}
	}

	sql, args, err := sqlbuilder.BuildInsert(table.Name, data)
	if err != nil {
		return CallResponse{}, bridgeerr.BadRequest("INVALID_INSERT", err.Error())
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("INSERT_FAILED", err.Error())
	}
	defer rows.Close()

	projected, err := projectRows(rows)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("ROW_SCAN_FAILED", err.Error())
	}
	if len(projected) != 1 {
		return CallResponse{}, bridgeerr.Internal("UNEXPECTED_ROW_COUNT", "insert did not return exactly one row")
	}

	visible := permissions.VisibleColumns(tp, table.AllColumnNames())
	return CallResponse{Data: filterColumns(projected[0], visible)}, nil
}

func (h *Handler) handleUpdate(ctx context.Context, pool dbExecutor, table *schema.Table, tp *permissions.TablePermissions, decision permissions.Decision, crud sqlbuilder.CrudParams, ownerSub string) (CallResponse, error) {
	if crud.Where.IsEmpty() {
		return CallResponse{}, bridgeerr.BadRequest("EMPTY_WHERE", "update requires a non-empty where clause")
	}
	if len(crud.Data) == 0 {
		return CallResponse{}, bridgeerr.BadRequest("EMPTY_UPDATE", "update requires at least one column to set")
	}

	cols := make([]string, 0, len(crud.Data))
	for col := range crud.Data {
		cols = append(cols, col)
	}
	writable := permissions.WritableColumns(tp, permissions.OpUpdate, cols)
	writableSet := toSet(writable)
	for col := range crud.Data {
		if !writableSet[col] {
			return CallResponse{}, bridgeerr.Forbidden("COLUMN_NOT_WRITABLE", fmt.Sprintf("column %q is not writable by this caller", col))
		}
	}

	extra := h.ownerConjunct(decision, ownerSub)

	sql, args, err := sqlbuilder.BuildUpdate(table.Name, crud.Data, crud.Where, extra)
	if err != nil {
		return CallResponse{}, bridgeerr.BadRequest("INVALID_UPDATE", err.Error())
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("UPDATE_FAILED", err.Error())
	}
	defer rows.Close()

	projected, err := projectRows(rows)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("ROW_SCAN_FAILED", err.Error())
	}

	visible := permissions.VisibleColumns(tp, table.AllColumnNames())
	return CallResponse{Data: filterRows(projected, visible), Meta: CallMeta{Count: len(projected)}}, nil
}

func (h *Handler) handleDelete(ctx context.Context, pool dbExecutor, table *schema.Table, tp *permissions.TablePermissions, decision permissions.Decision, crud sqlbuilder.CrudParams, ownerSub string) (CallResponse, error) {
	if crud.Where.IsEmpty() {
		return CallResponse{}, bridgeerr.BadRequest("EMPTY_WHERE", "delete requires a non-empty where clause")
	}

	extra := h.ownerConjunct(decision, ownerSub)

	sql, args, err := sqlbuilder.BuildDelete(table.Name, crud.Where, extra)
	if err != nil {
		return CallResponse{}, bridgeerr.BadRequest("INVALID_DELETE", err.Error())
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("DELETE_FAILED", err.Error())
	}
	defer rows.Close()

	deleted, err := projectRows(rows)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("ROW_SCAN_FAILED", err.Error())
	}

	h.cascadeDeleteFiles(ctx, table, deleted)

	visible := permissions.VisibleColumns(tp, table.AllColumnNames())
	return CallResponse{Data: filterRows(deleted, visible), Meta: CallMeta{Count: len(deleted)}}, nil
}

// cascadeDeleteFiles best-effort deletes the object storage key for every
// file-typed column whose policy is cascade, for every row that was just
// deleted. A storage delete failure is logged and counted, never
// propagated: the row is already gone, and an orphaned object is a
// cheaper failure mode than a half-committed delete.
func (h *Handler) cascadeDeleteFiles(ctx context.Context, table *schema.Table, deletedRows []map[string]any) {
	for _, col := range table.Columns {
		if col.Type.Kind != schema.KindFile || col.Type.FileOnDelete != schema.FileDeleteCascade {
			continue
		}
		for _, row := range deletedRows {
			key, ok := row[col.Name].(string)
			if !ok || key == "" {
				continue
			}
			if err := h.Broker.DeleteNow(ctx, col.Type.Bucket, key); err != nil {
				telemetry.StorageDeleteFailuresTotal.Inc()
				h.Logger.Error("cascade file delete failed", "table", table.Name, "column", col.Name, "key", key, "error", err)
			}
		}
	}
}

// ownerConjunct renders decision's owner predicate as a bound condition
// against the caller's subject, or returns nil when there is none.
func (h *Handler) ownerConjunct(decision permissions.Decision, ownerSub string) []sqlbuilder.Condition {
	if decision.OwnerColumn == "" {
		return nil
	}
	return []sqlbuilder.Condition{sqlbuilder.Eq(decision.OwnerColumn, ownerSub)}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
