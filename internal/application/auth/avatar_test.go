package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/baechuer/contacts-service/internal/domain"
)

func TestUpdateAvatar_NoFile(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)

	_, err := svc.UpdateAvatar(context.Background(), "u1", nil)
	requireDomainCode(t, err, "no_file")
}

func TestUpdateAvatar_UnknownUser_NotFound(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)

	_, err := svc.UpdateAvatar(context.Background(), "ghost", []byte("img"))
	requireDomainCode(t, err, "user_not_found")
	if len(d.storage.saved) != 0 {
		t.Fatalf("nothing should be stored for unknown users")
	}
}

func TestUpdateAvatar_Success_PersistsAfterStore(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", AvatarURL: "old"})

	url, err := svc.UpdateAvatar(context.Background(), "u1", []byte("img"))
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}

	wantName := fmt.Sprintf("u1_%d.jpg", fixedNow.UnixNano())
	if len(d.storage.saved) != 1 || d.storage.saved[0] != wantName {
		t.Fatalf("unexpected stored files %v", d.storage.saved)
	}
	if url != "/avatars/"+wantName {
		t.Fatalf("unexpected url %q", url)
	}
	if d.users.get("u1").AvatarURL != url {
		t.Fatalf("avatar url not persisted")
	}
	if d.images.lastSize != 250 {
		t.Fatalf("expected 250px resize, got %d", d.images.lastSize)
	}
	requireAuditAction(t, d.audits, "avatar_updated")
}

func TestUpdateAvatar_StorageFailure_LeavesUserUntouched(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(domain.User{ID: "u1", Email: "e@x.com", AvatarURL: "old"})
	d.storage.err = errors.New("disk full")

	_, err := svc.UpdateAvatar(context.Background(), "u1", []byte("img"))
	requireDomainCode(t, err, "storage_failed")

	if len(d.users.avatarWrites) != 0 {
		t.Fatalf("identity must not be written on storage failure")
	}
	if d.users.get("u1").AvatarURL != "old" {
		t.Fatalf("avatar must be unchanged")
	}
}

func TestUpdateAvatar_ProcessingErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code string
	}{
		{"domain error passes through", domain.ErrUnsupportedImage("format"), "unsupported_image"},
		{"raw error wrapped", errors.New("decode panic"), "image_processing_failed"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, d := newSvcForTest(t)
			d.users.put(domain.User{ID: "u1", Email: "e@x.com"})
			d.images.err = c.err

			_, err := svc.UpdateAvatar(context.Background(), "u1", []byte("img"))
			requireDomainCode(t, err, c.code)
		})
	}
}
