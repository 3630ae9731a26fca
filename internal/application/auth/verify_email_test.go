package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/contacts-service/internal/domain"
)

func TestVerifyEmail_UnknownToken_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)

	err := svc.VerifyEmail(context.Background(), "garbage-token")
	requireDomainCode(t, err, "verify_token_not_found")

	err = svc.VerifyEmail(context.Background(), "   ")
	requireDomainCode(t, err, "verify_token_not_found")
}

func TestVerifyEmail_Success_ClearsToken(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", VerificationToken: "vt"})

	if err := svc.VerifyEmail(context.Background(), "vt"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	u := d.users.get("u1")
	if !u.Verified || u.VerificationToken != "" {
		t.Fatalf("expected verified with cleared token, got %+v", u)
	}
	requireAuditAction(t, d.audits, "email_verified")
}

func TestVerifyEmail_SecondUse_Fails(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", VerificationToken: "vt"})

	if err := svc.VerifyEmail(context.Background(), "vt"); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	// the token was cleared, so the stale link no longer resolves
	err := svc.VerifyEmail(context.Background(), "vt")
	requireDomainCode(t, err, "verify_token_not_found")
}

func TestVerifyEmail_VerifiedHolder_AlreadyVerified(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", Verified: true, VerificationToken: "stale"})

	err := svc.VerifyEmail(context.Background(), "stale")
	requireDomainCode(t, err, "already_verified")
}

func TestVerifyEmail_ConcurrentConsume_AlreadyVerified(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", VerificationToken: "vt"})
	d.users.fail("MarkVerified", domain.ErrAlreadyVerified())

	err := svc.VerifyEmail(context.Background(), "vt")
	requireDomainCode(t, err, "already_verified")
}

// rotatingRepo rotates the token right after it was looked up, as a
// concurrent resend would.
type rotatingRepo struct {
	*fakeUserRepo
	next string
}

func (r rotatingRepo) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	u, err := r.fakeUserRepo.GetByVerificationToken(ctx, token)
	if err == nil {
		_ = r.SetVerificationToken(ctx, u.ID, r.next)
	}
	return u, err
}

func TestVerifyEmail_TokenRotatedMidway_NotConsumed(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", VerificationToken: "stale"})
	svc.users = rotatingRepo{fakeUserRepo: d.users, next: "fresh"}

	err := svc.VerifyEmail(context.Background(), "stale")
	requireDomainCode(t, err, "verify_token_not_found")

	u := d.users.get("u1")
	if u.Verified || u.VerificationToken != "fresh" {
		t.Fatalf("superseded token must not verify, got %+v", u)
	}
	for _, a := range *d.audits {
		if a.action == "email_verified" {
			t.Fatal("unexpected email_verified audit")
		}
	}
}

func TestResendVerification_MissingEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)

	_, err := svc.ResendVerification(context.Background(), "")
	requireDomainCode(t, err, "missing_field")
}

func TestResendVerification_UnknownEmail_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)

	_, err := svc.ResendVerification(context.Background(), "nobody@x.com")
	requireDomainCode(t, err, "user_not_found")
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", Verified: true})

	_, err := svc.ResendVerification(context.Background(), "e@x.com")
	requireDomainCode(t, err, "already_verified")
}

func TestResendVerification_RotatesToken_AndSends(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", VerificationToken: "old"})

	tok, err := svc.ResendVerification(context.Background(), "E@x.com")
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if tok == "" || tok == "old" {
		t.Fatalf("expected fresh token, got %q", tok)
	}
	if d.users.get("u1").VerificationToken != tok {
		t.Fatalf("token not persisted")
	}
	if len(d.pub.evts) != 1 || d.pub.evts[0].URL != svc.VerificationURL(tok) {
		t.Fatalf("unexpected events %+v", d.pub.evts)
	}

	// old link is dead, new one works
	requireDomainCode(t, svc.VerifyEmail(context.Background(), "old"), "verify_token_not_found")
	if err := svc.VerifyEmail(context.Background(), tok); err != nil {
		t.Fatalf("verify with new token: %v", err)
	}
}

func TestResendVerification_MailFailure_ReturnsMailFailed(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", VerificationToken: "old"})
	d.pub.verifyErr = errors.New("smtp down")

	_, err := svc.ResendVerification(context.Background(), "e@x.com")
	requireDomainCode(t, err, "mail_failed")
}
