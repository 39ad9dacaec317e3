package domain

import (
	"errors"
	"testing"
)

func TestFieldZeroValueIsUnset(t *testing.T) {
	var f Field[string]
	if !f.IsUnset() || f.IsNull() || f.IsSet() {
		t.Fatalf("zero Field should be unset, got %s", f)
	}
}

func TestFieldSet(t *testing.T) {
	f := Set(42)
	if !f.IsSet() {
		t.Fatal("expected set state")
	}
	v, ok := f.Value()
	if !ok || v != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", v, ok)
	}
	if p := f.Ptr(); p == nil || *p != 42 {
		t.Fatalf("expected pointer to 42, got %v", p)
	}
}

func TestFieldNull(t *testing.T) {
	f := Null[int]()
	if !f.IsNull() {
		t.Fatal("expected null state")
	}
	if _, ok := f.Value(); ok {
		t.Fatal("null field should not report a value")
	}
	if p := f.Ptr(); p != nil {
		t.Fatalf("expected nil pointer, got %v", p)
	}
}

func TestFieldPtrPanicsOnUnset(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Ptr of unset field")
		}
	}()
	var f Field[int]
	f.Ptr()
}

func TestUserPatchIsEmpty(t *testing.T) {
	if !(UserPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	if (UserPatch{Name: Set("Ann")}).IsEmpty() {
		t.Fatal("patch with name set should not be empty")
	}
	if (UserPatch{Age: Null[int]()}).IsEmpty() {
		t.Fatal("patch with age nulled should not be empty")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var nf *NotFoundError
	err := error(&NotFoundError{EntityType: "User", ID: "abc"})
	if !errors.As(err, &nf) || nf.EntityType != "User" {
		t.Fatalf("errors.As failed for NotFoundError: %v", err)
	}

	var dup *DuplicateError
	err = &DuplicateError{EntityType: "User", Field: "email", Value: "a@b.com"}
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("errors.As failed for DuplicateError: %v", err)
	}

	cause := errors.New("connection reset")
	var dbe *DatabaseError
	err = &DatabaseError{Op: "create user", Err: cause}
	if !errors.As(err, &dbe) || !errors.Is(err, cause) {
		t.Fatalf("DatabaseError should wrap its cause: %v", err)
	}
}
