package models

import (
	"fmt"

	"github.com/google/uuid"
)

func GenerateBetID() string {
	return fmt.Sprintf("bet_%s", uuid.NewString())
}

func GenerateSeedID() string {
	return fmt.Sprintf("seed_%s", uuid.NewString())
}
