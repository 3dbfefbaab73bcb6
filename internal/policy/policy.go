// Package policy holds the authorization rules shared by quotations and
// documents. Administrators may read everything and review quotations, but
// content edits and deletions of quotations always belong to the owner.
package policy

import (
	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/auth"
)

func forbid(msg string) error {
	return apperr.New(apperr.ErrForbidden, msg)
}

// CanView allows the owner or an administrator.
func CanView(s auth.Identity, ownerID int64) error {
	if s.IsAdmin() || s.UserID == ownerID {
		return nil
	}
	return forbid("you do not have access to this quotation")
}

// CanEditContent allows only the owner, administrators included.
func CanEditContent(s auth.Identity, ownerID int64) error {
	if s.UserID == ownerID {
		return nil
	}
	return forbid("only the owner may edit this quotation")
}

// CanDeleteQuotation allows only the owner.
func CanDeleteQuotation(s auth.Identity, ownerID int64) error {
	if s.UserID == ownerID {
		return nil
	}
	return forbid("only the owner may delete this quotation")
}

// CanReview allows administrators to change status and observation.
func CanReview(s auth.Identity) error {
	if s.IsAdmin() {
		return nil
	}
	return forbid("administrator role required")
}

// CanListAll allows administrators to list across users.
func CanListAll(s auth.Identity) error {
	return CanReview(s)
}

// CanAttach allows the quotation owner or an administrator to upload.
func CanAttach(s auth.Identity, quotationOwnerID int64) error {
	if s.IsAdmin() || s.UserID == quotationOwnerID {
		return nil
	}
	return forbid("you cannot attach documents to this quotation")
}

// CanDeleteDocument allows the uploader or an administrator.
func CanDeleteDocument(s auth.Identity, uploaderID int64) error {
	if s.IsAdmin() || s.UserID == uploaderID {
		return nil
	}
	return forbid("you cannot delete this document")
}

// CanDownload allows the uploader, the quotation owner, or an administrator.
func CanDownload(s auth.Identity, uploaderID, quotationOwnerID int64) error {
	if s.IsAdmin() || s.UserID == uploaderID || s.UserID == quotationOwnerID {
		return nil
	}
	return forbid("you cannot access this document")
}
