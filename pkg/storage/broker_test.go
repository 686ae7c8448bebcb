package storage

import "testing"

func TestMatchPathPrefersMostSpecificPattern(t *testing.T) {
	bucket := BucketConfig{Policies: []Policy{
		{Pattern: "*"},
		{Pattern: "avatars/*"},
		{Pattern: "avatars/{user_id}/profile.jpg"},
	}}

	match, ok := MatchPath(bucket, "avatars/u1/profile.jpg")
	if !ok {
		t.Fatalf("expected a match")
	}
	if match.Policy.Pattern != "avatars/{user_id}/profile.jpg" {
		t.Errorf("matched pattern = %q, want the most specific one", match.Policy.Pattern)
	}
	if match.Captures["user_id"] != "u1" {
		t.Errorf("captures = %v, want user_id=u1", match.Captures)
	}
}

func TestMatchPathFallsBackToWildcard(t *testing.T) {
	bucket := BucketConfig{Policies: []Policy{
		{Pattern: "*"},
		{Pattern: "avatars/{user_id}/profile.jpg"},
	}}

	match, ok := MatchPath(bucket, "reports/q1.csv")
	if !ok {
		t.Fatalf("expected the wildcard policy to match")
	}
	if match.Policy.Pattern != "*" {
		t.Errorf("matched pattern = %q, want *", match.Policy.Pattern)
	}
}

func TestMatchPathNoMatch(t *testing.T) {
	bucket := BucketConfig{Policies: []Policy{
		{Pattern: "avatars/{user_id}/profile.jpg"},
	}}

	if _, ok := MatchPath(bucket, "reports/q1.csv"); ok {
		t.Errorf("expected no match")
	}
}

func TestMatchPathPrefixSegment(t *testing.T) {
	bucket := BucketConfig{Policies: []Policy{
		{Pattern: "exports/report-*"},
	}}

	if _, ok := MatchPath(bucket, "exports/report-2024.csv"); !ok {
		t.Errorf("expected prefix-segment pattern to match")
	}
	if _, ok := MatchPath(bucket, "exports/other.csv"); ok {
		t.Errorf("expected prefix-segment pattern to reject a non-matching name")
	}
}

func TestAuthorizeRejectsMissingRole(t *testing.T) {
	b := &Broker{}
	match := MatchResult{Policy: Policy{Pattern: "admin/*", Roles: []string{"admin"}}}
	caller := Caller{Sub: "u1", Roles: []string{"member"}}

	if err := b.Authorize(match, caller, Request{Path: "admin/x"}, OpDownload); err == nil {
		t.Errorf("expected role check to fail")
	}
}

func TestAuthorizePublicRoleAllowsAnyone(t *testing.T) {
	b := &Broker{}
	match := MatchResult{Policy: Policy{Pattern: "public/*", Roles: []string{"public"}}}
	caller := Caller{}

	if err := b.Authorize(match, caller, Request{Path: "public/x"}, OpDownload); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthorizeEnforcesMaxSizeOnUploadOnly(t *testing.T) {
	b := &Broker{}
	match := MatchResult{Policy: Policy{Pattern: "uploads/*", MaxSizeBytes: 1024}}

	if err := b.Authorize(match, Caller{}, Request{Path: "uploads/x", SizeBytes: 2048}, OpUpload); err == nil {
		t.Errorf("expected oversized upload to be rejected")
	}
	if err := b.Authorize(match, Caller{}, Request{Path: "uploads/x", SizeBytes: 2048}, OpDownload); err != nil {
		t.Errorf("expected size limit to not apply to downloads, got: %v", err)
	}
}

func TestAuthorizeEnforcesAllowedTypes(t *testing.T) {
	b := &Broker{}
	match := MatchResult{Policy: Policy{Pattern: "images/*", AllowedTypes: []string{"image/*"}}}

	if err := b.Authorize(match, Caller{}, Request{Path: "images/x", ContentType: "image/png"}, OpUpload); err != nil {
		t.Errorf("expected image/png to be allowed: %v", err)
	}
	if err := b.Authorize(match, Caller{}, Request{Path: "images/x", ContentType: "application/pdf"}, OpUpload); err == nil {
		t.Errorf("expected application/pdf to be rejected")
	}
}

func TestAuthorizeEvaluatesCondition(t *testing.T) {
	b, err := NewBroker(nil, nil)
	if err != nil {
		t.Fatalf("NewBroker() error: %v", err)
	}

	match := MatchResult{
		Policy:   Policy{Pattern: "avatars/{user_id}/*", Condition: `path.user_id == request.auth.sub`},
		Captures: map[string]string{"user_id": "u1"},
	}

	if err := b.Authorize(match, Caller{Sub: "u1"}, Request{Path: "avatars/u1/pic.jpg"}, OpUpload); err != nil {
		t.Errorf("expected matching owner to be authorized: %v", err)
	}
	if err := b.Authorize(match, Caller{Sub: "u2"}, Request{Path: "avatars/u1/pic.jpg"}, OpUpload); err == nil {
		t.Errorf("expected mismatched owner to be denied")
	}
}
