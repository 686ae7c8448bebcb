package bridgeapi

import (
	"context"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/pkg/storage"
)

// storageRequest is the decoded params shape for a storage/<bucket>/<op>
// call: a path within the bucket, plus the upload-only metadata a policy
// may size- or type-check before presigning.
type storageRequest struct {
	Path        string
	ContentType string
	SizeBytes   int64
}

// handleStorage resolves a storage/<bucket>/<op> request against the
// release's declared bucket policies and returns a presigned URL for the
// requested operation. No bytes ever flow through the Bridge itself —
// the caller uses the returned URL to talk to S3 directly.
func (h *Handler) handleStorage(ctx context.Context, reqCtx RequestContext, route Route, params map[string]any) (CallResponse, error) {
	cfg := h.StorageCfg(reqCtx.Release)
	bucket, ok := cfg.Buckets[route.Bucket]
	if !ok {
		return CallResponse{}, bridgeerr.NotFound("BUCKET_NOT_FOUND", "bucket \""+route.Bucket+"\" is not declared in this release")
	}

	req, err := parseStorageParams(params)
	if err != nil {
		return CallResponse{}, err
	}
	if req.Path == "" {
		return CallResponse{}, bridgeerr.BadRequest("INVALID_PARAMS", "path is required")
	}

	match, ok := storage.MatchPath(bucket, req.Path)
	if !ok {
		return CallResponse{}, bridgeerr.Forbidden("NO_MATCHING_POLICY", "no storage policy matches path \""+req.Path+"\"")
	}

	caller := storage.Caller{Sub: reqCtx.Auth.Sub, Roles: reqCtx.Auth.Roles}
	if !reqCtx.Auth.IsAuthenticated() {
		caller.Roles = append(caller.Roles, "public")
	}

	storageReq := storage.Request{Path: req.Path, ContentType: req.ContentType, SizeBytes: req.SizeBytes}
	if err := h.Broker.Authorize(match, caller, storageReq, route.StorageOp); err != nil {
		return CallResponse{}, bridgeerr.Forbidden("FORBIDDEN", err.Error())
	}

	key := bucket.Bucket + "/" + req.Path
	var url string
	switch route.StorageOp {
	case storage.OpUpload:
		url, err = h.Broker.PresignUpload(ctx, bucket.Bucket, req.Path, req.ContentType)
	case storage.OpDownload:
		url, err = h.Broker.PresignDownload(ctx, bucket.Bucket, req.Path)
	case storage.OpDelete:
		url, err = h.Broker.PresignDelete(ctx, bucket.Bucket, req.Path)
	default:
		return CallResponse{}, bridgeerr.Internal("UNKNOWN_STORAGE_OP", "unrecognized storage operation")
	}
	if err != nil {
		h.Logger.Error("presigning storage operation failed", "bucket", route.Bucket, "key", key, "error", err)
		return CallResponse{}, bridgeerr.Internal("PRESIGN_FAILED", err.Error())
	}

	return CallResponse{Data: map[string]any{
		"url":        url,
		"expires_in": int(storage.PresignTTL.Seconds()),
	}}, nil
}

func parseStorageParams(params map[string]any) (storageRequest, error) {
	var req storageRequest
	if v, ok := params["path"]; ok {
		s, ok := v.(string)
		if !ok {
			return req, bridgeerr.BadRequest("INVALID_PARAMS", "path must be a string")
		}
		req.Path = s
	}
	if v, ok := params["contentType"]; ok {
		s, ok := v.(string)
		if !ok {
			return req, bridgeerr.BadRequest("INVALID_PARAMS", "contentType must be a string")
		}
		req.ContentType = s
	}
	if v, ok := params["sizeBytes"]; ok {
		f, ok := v.(float64)
		if !ok {
			return req, bridgeerr.BadRequest("INVALID_PARAMS", "sizeBytes must be a number")
		}
		req.SizeBytes = int64(f)
	}
	return req, nil
}
