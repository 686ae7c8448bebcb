// Package bridgeapi implements the Bridge's single public operation:
// POST /call. It parses the declarative path, resolves the caller's
// release, checks permissions, and dispatches to the database, a named
// logic file, or object storage.
package bridgeapi

import (
	"fmt"
	"strings"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/storage"
)

// RouteKind identifies which of the three /call surfaces a path resolved
// to, used as a Prometheus label and an audit-log field.
type RouteKind string

const (
	RouteKindDB      RouteKind = "db"
	RouteKindLogic   RouteKind = "logics"
	RouteKindStorage RouteKind = "storage"
)

// Route is the parsed form of a call request's "path" field.
type Route struct {
	Kind RouteKind

	// db/<table>/<op>
	Table string
	DBOp  permissions.Operation

	// logics/<name...> — name may itself contain slashes, so it is taken
	// as everything after the "logics/" prefix.
	LogicName string

	// storage/<bucket>/<op>
	Bucket    string
	StorageOp storage.Op
}

// ParsePath parses a call request's declarative path against the
// "db/<table>/<op> | logics/<name...> | storage/<bucket>/<op>" grammar.
func ParsePath(path string) (Route, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return Route{}, bridgeerr.BadRequest("INVALID_PATH", "path must not be empty")
	}

	segments := strings.Split(path, "/")
	head := segments[0]

	switch head {
	case "db":
		if len(segments) != 3 {
			return Route{}, bridgeerr.BadRequest("INVALID_PATH", "expected db/<table>/<op>")
		}
		op, ok := permissions.ParseOperation(segments[2])
		if !ok {
			return Route{}, bridgeerr.BadRequest("INVALID_PATH", fmt.Sprintf("unknown db operation %q", segments[2]))
		}
		return Route{Kind: RouteKindDB, Table: segments[1], DBOp: op}, nil

	case "logics":
		if len(segments) < 2 || segments[1] == "" {
			return Route{}, bridgeerr.BadRequest("INVALID_PATH", "expected logics/<name>")
		}
		return Route{Kind: RouteKindLogic, LogicName: strings.Join(segments[1:], "/")}, nil

	case "storage":
		if len(segments) != 3 {
			return Route{}, bridgeerr.BadRequest("INVALID_PATH", "expected storage/<bucket>/<op>")
		}
		op, err := parseStorageOp(segments[2])
		if err != nil {
			return Route{}, err
		}
		return Route{Kind: RouteKindStorage, Bucket: segments[1], StorageOp: op}, nil

	default:
		return Route{}, bridgeerr.BadRequest("INVALID_PATH", fmt.Sprintf("unknown path prefix %q", head))
	}
}

func parseStorageOp(s string) (storage.Op, error) {
	switch storage.Op(s) {
	case storage.OpUpload, storage.OpDownload, storage.OpDelete:
		return storage.Op(s), nil
	default:
		return "", bridgeerr.BadRequest("INVALID_PATH", fmt.Sprintf("unknown storage operation %q", s))
	}
}
