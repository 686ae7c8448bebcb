package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/cel-go/cel"
)

// Op identifies a storage verb.
type Op string

const (
	OpUpload   Op = "upload"
	OpDownload Op = "download"
	OpDelete   Op = "delete"
)

// PresignTTL is the validity window of every presigned URL this broker
// issues.
const PresignTTL = 15 * time.Minute

// Caller is the identity a storage request is evaluated against.
type Caller struct {
	Sub   string
	Roles []string
}

func (c Caller) hasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Request is one storage/<bucket>/<op> call.
type Request struct {
	Path        string
	ContentType string
	SizeBytes   int64
}

// MatchResult is the policy a path resolved to, plus the named segments
// its pattern captured (e.g. {user_id} in "avatars/{user_id}/*").
type MatchResult struct {
	Policy   Policy
	Captures map[string]string
}

// MatchPath finds the policy governing path within a bucket's ordered
// rule list. When multiple patterns match, the highest specificity score
// wins, and on a tie the earlier rule: each literal segment scores 10 plus
// its length, a prefix segment ("report-*") 3 plus its length, a {capture}
// 2 and a bare "*" 1, so "avatars/{user_id}/profile.jpg" beats
// "avatars/*" which beats "*".
func MatchPath(bucket BucketConfig, path string) (MatchResult, bool) {
	var best MatchResult
	bestScore := -1
	found := false

	for _, pol := range bucket.Policies {
		captures, ok := matchPattern(pol.Pattern, path)
		if !ok {
			continue
		}
		score := specificity(pol.Pattern)
		if score > bestScore {
			bestScore = score
			best = MatchResult{Policy: pol, Captures: captures}
			found = true
		}
	}

	return best, found
}

func specificity(pattern string) int {
	segments := strings.Split(pattern, "/")
	score := 0
	for _, seg := range segments {
		switch {
		case seg == "*":
			score += 1
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			score += 2
		case strings.HasSuffix(seg, "*"):
			score += 3 + len(seg)
		default:
			score += 10 + len(seg)
		}
	}
	return score
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")

	captures := map[string]string{}

	for i, pseg := range patSegs {
		if pseg == "**" {
			return captures, true
		}
		if i >= len(pathSegs) {
			return nil, false
		}
		seg := pathSegs[i]

		switch {
		case pseg == "*":
			// matches exactly one segment, nothing to capture
		case strings.HasPrefix(pseg, "{") && strings.HasSuffix(pseg, "}"):
			name := pseg[1 : len(pseg)-1]
			captures[name] = seg
		case strings.HasSuffix(pseg, "*"):
			prefix := strings.TrimSuffix(pseg, "*")
			if !strings.HasPrefix(seg, prefix) {
				return nil, false
			}
		default:
			if pseg != seg {
				return nil, false
			}
		}
	}

	if len(patSegs) != len(pathSegs) {
		return nil, false
	}
	return captures, true
}

// Broker evaluates storage policies and presigns the resulting S3
// operation.
type Broker struct {
	presign *s3.PresignClient
	client  *s3.Client
	env     *cel.Env
}

// NewBroker builds a Broker around an S3 presign client. client is
// optional (nil disables DeleteNow, the only operation that calls S3
// directly rather than presigning a URL for the caller to use).
func NewBroker(presign *s3.PresignClient, client *s3.Client) (*Broker, error) {
	env, err := cel.NewEnv(
		cel.Variable("request", cel.DynType),
		cel.Variable("path", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: building CEL environment: %w", err)
	}
	return &Broker{presign: presign, client: client, env: env}, nil
}

// Authorize checks a matched policy's role and condition requirements for
// caller and req, returning an error describing the first failed check.
func (b *Broker) Authorize(match MatchResult, caller Caller, req Request, op Op) error {
	pol := match.Policy

	if len(pol.Roles) > 0 {
		allowed := false
		for _, role := range pol.Roles {
			if role == "public" || caller.hasRole(role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("storage: caller lacks a required role for %q", pol.Pattern)
		}
	}

	if op == OpUpload {
		if pol.MaxSizeBytes > 0 && req.SizeBytes > pol.MaxSizeBytes {
			return fmt.Errorf("storage: object size %d exceeds policy limit %d", req.SizeBytes, pol.MaxSizeBytes)
		}
		if len(pol.AllowedTypes) > 0 && !typeAllowed(pol.AllowedTypes, req.ContentType) {
			return fmt.Errorf("storage: content type %q is not permitted by policy %q", req.ContentType, pol.Pattern)
		}
	}

	if pol.Condition != "" {
		ok, err := b.evalCondition(pol.Condition, caller, match, req)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("storage: condition denied access to %q", req.Path)
		}
	}

	return nil
}

func typeAllowed(allowed []string, contentType string) bool {
	for _, a := range allowed {
		if a == "*" || a == contentType {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(contentType, prefix+"/") {
			return true
		}
	}
	return false
}

func (b *Broker) evalCondition(condition string, caller Caller, match MatchResult, req Request) (bool, error) {
	ast, issues := b.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("storage: compiling condition %q: %w", condition, issues.Err())
	}
	program, err := b.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("storage: building program for condition %q: %w", condition, err)
	}

	pathVars := map[string]any{}
	for k, v := range match.Captures {
		pathVars[k] = v
	}

	vars := map[string]any{
		"request": map[string]any{
			"auth": map[string]any{
				"sub":   caller.Sub,
				"roles": caller.Roles,
			},
		},
		"path": pathVars,
	}

	out, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("storage: evaluating condition %q: %w", condition, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("storage: condition %q did not evaluate to a boolean", condition)
	}
	return result, nil
}

// PresignUpload returns a presigned PUT URL for key in bucket.
func (b *Broker) PresignUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	out, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return "", fmt.Errorf("storage: presigning upload for %s/%s: %w", bucket, key, err)
	}
	return out.URL, nil
}

// PresignDownload returns a presigned GET URL for key in bucket.
func (b *Broker) PresignDownload(ctx context.Context, bucket, key string) (string, error) {
	out, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return "", fmt.Errorf("storage: presigning download for %s/%s: %w", bucket, key, err)
	}
	return out.URL, nil
}

// PresignDelete returns a presigned DELETE URL for key in bucket.
func (b *Broker) PresignDelete(ctx context.Context, bucket, key string) (string, error) {
	out, err := b.presign.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return "", fmt.Errorf("storage: presigning delete for %s/%s: %w", bucket, key, err)
	}
	return out.URL, nil
}

// DeleteNow issues an immediate S3 DeleteObject call, used by cascade
// delete (removing a file column's backing object when its owning row is
// deleted) where there is no caller left to hand a presigned URL to.
func (b *Broker) DeleteNow(ctx context.Context, bucket, key string) error {
	if b.client == nil {
		return fmt.Errorf("storage: broker has no direct S3 client configured")
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("storage: deleting %s/%s: %w", bucket, key, err)
	}
	return nil
}
