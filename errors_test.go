package layerfs

import (
	"errors"
	"io/fs"
	"testing"
)

func TestErrorMessageFormat(t *testing.T) {
	err := New("open", "/f.txt", ENOENT)
	want := "open /f.txt: no such file or directory"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestIsKindMatchesExactKind(t *testing.T) {
	err := New("stat", "/f.txt", EACCES)
	if !IsKind(err, EACCES) {
		t.Errorf("expected IsKind to match EACCES")
	}
	if IsKind(err, ENOENT) {
		t.Errorf("expected IsKind not to match ENOENT")
	}
}

func TestDeletedObjectIsNotExistButDistinguishable(t *testing.T) {
	err := NewDeleted("stat", "/f.txt")
	if !IsNotExist(err) {
		t.Errorf("expected DeletedObject to satisfy IsNotExist")
	}
	if !IsDeleted(err) {
		t.Errorf("expected IsDeleted to report true")
	}
	if IsDeleted(New("stat", "/f.txt", ENOENT)) {
		t.Errorf("expected a plain ENOENT to not be reported as Deleted")
	}
}

func TestErrorIsMatchesSentinelByKindOnly(t *testing.T) {
	err := NewDeleted("stat", "/f.txt")
	sentinel := New("", "", ENOENT)
	if !errors.Is(err, sentinel) {
		t.Errorf("expected a DeletedObject error to match an ENOENT sentinel via errors.Is")
	}
}

func TestErrorUnwrapsToStdlibSentinels(t *testing.T) {
	if !errors.Is(New("stat", "/f.txt", ENOENT), fs.ErrNotExist) {
		t.Errorf("expected ENOENT to unwrap to fs.ErrNotExist")
	}
	if !errors.Is(New("open", "/f.txt", EEXIST), fs.ErrExist) {
		t.Errorf("expected EEXIST to unwrap to fs.ErrExist")
	}
	if !errors.Is(New("open", "/f.txt", EACCES), fs.ErrPermission) {
		t.Errorf("expected EACCES to unwrap to fs.ErrPermission")
	}
}

func TestValidationErrorIsDistinctFromError(t *testing.T) {
	var verr error = invalidArg("bad thing: %s", "reason")
	var e *Error
	if errors.As(verr, &e) {
		t.Errorf("a ValidationError should never match as *Error")
	}
	if verr.Error() != "bad thing: reason" {
		t.Errorf("got %q", verr.Error())
	}
}
