package common

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/errors"
)

// LogInternalError logs err with its stack under a random reference and returns a WinError that only carries the
// reference, so callers never see implementation details.
func LogInternalError(err error) errors.WinError {
	var errRef string
	id, err2 := uuid.NewRandom()
	if err2 != nil {
		log.Errorf("failed to generate uuid %v", err2)
	} else {
		errRef = id.String()
	}
	log.Errorf("internal error occurred with reference %s\n%+v", errRef, err)
	return errors.NewInternalError(errRef)
}
