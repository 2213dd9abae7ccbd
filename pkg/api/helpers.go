package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nexuscore/nexuscore/pkg/apierr"
)

func fmtInvalid(reason string) error {
	return fmt.Errorf("api: %s: %w", reason, apierr.ErrInvalidInput)
}

func fmtInvalidWrap(err error) error {
	return fmt.Errorf("api: %w: %v", apierr.ErrInvalidInput, err)
}

func fmtNotFound(what string) error {
	return fmt.Errorf("api: %s: %w", what, apierr.ErrNotFound)
}

func fmtNoCapacity(reason string) error {
	return fmt.Errorf("api: %s: %w", reason, apierr.ErrNoCapacity)
}

func newPodID() string {
	return uuid.New().String()
}
