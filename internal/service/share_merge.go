package service

import "github.com/xxxsen/mpan/internal/model"

// mergeShare applies a re-share request onto an existing record. This is the
// single place where update semantics live:
//   - id, file_id, user_id, share_base and create_date are preserved
//   - file_name, content_type and is_folder are refreshed from the resource
//   - expire_date is set from the request, or cleared when absent
//   - permissions are replaced only when the request carries a list
//   - toggling privacy on generates a code if the record has none;
//     toggling it off drops the code
//
// The second return value reports whether this call enabled privacy, i.e.
// whether the plaintext code may be shown to the caller.
func mergeShare(existing *model.Share, file *model.FileDocument, in GenerateLinkInput, expireAt, now int64, codeLength int) (*model.Share, bool) {
	merged := *existing
	merged.FileName = file.Name
	merged.ContentType = file.ContentType
	merged.IsFolder = file.IsFolder
	merged.ExpireDate = expireAt
	merged.UpdateDate = now
	if in.Permissions != nil {
		merged.Permissions = in.Permissions
	}
	codeEnabled := false
	merged.IsPrivacy = in.IsPrivacy
	if in.IsPrivacy {
		if merged.ExtractionCode == "" {
			merged.ExtractionCode = newExtractionCode(codeLength)
			codeEnabled = true
		}
	} else {
		merged.ExtractionCode = ""
	}
	return &merged, codeEnabled
}
