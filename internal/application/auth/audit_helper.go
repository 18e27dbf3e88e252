package auth

import (
	"errors"
	"strconv"

	"github.com/icritic/users-service/internal/domain"
)

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}

type auditFunc func(result string, err error, extra map[string]string)

// auditor returns the per-call audit closure with actor/target pre-filled.
func (s *Service) auditor(action string, actor Actor, targetID int64) auditFunc {
	return func(result string, err error, extra map[string]string) {
		fields := map[string]string{
			"actor_id":   idString(actor.ID),
			"actor_role": actor.Role.String(),
			"target_id":  idString(targetID),
			"result":     result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit(action, fields)
	}
}

func idString(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
