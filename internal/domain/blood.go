package domain

import (
	"errors"
	"fmt"
	"strings"
)

// BloodType is the group in the I..IV notation used by the donor center.
type BloodType string

const (
	TypeI   BloodType = "I"
	TypeII  BloodType = "II"
	TypeIII BloodType = "III"
	TypeIV  BloodType = "IV"
)

// RhFactor is the rhesus sign as the center's page prints it.
type RhFactor string

const (
	RhPlus  RhFactor = "+"
	RhMinus RhFactor = "–" // en dash, matching the page
)

var (
	ErrUnknownBloodType = errors.New("unknown blood type")
	ErrUnknownRh        = errors.New("unknown rh factor")
)

// ParseBloodType reads the group from the first whitespace-separated token,
// so both a bare "II" and the keyboard label "II - друга" are accepted.
func ParseBloodType(s string) (BloodType, error) {
	tok := strings.Fields(s)
	if len(tok) == 0 {
		return "", ErrUnknownBloodType
	}
	switch bt := BloodType(tok[0]); bt {
	case TypeI, TypeII, TypeIII, TypeIV:
		return bt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBloodType, tok[0])
}

// ParseRh accepts the keyboard labels "(+)" / "(–)" as well as bare signs.
// An ASCII hyphen counts as minus.
func ParseRh(s string) (RhFactor, error) {
	s = strings.Trim(strings.TrimSpace(s), "()")
	switch s {
	case "+":
		return RhPlus, nil
	case "–", "-":
		return RhMinus, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRh, s)
}

// Key identifies one of the eight inventory slots.
type Key struct {
	Type BloodType
	Rh   RhFactor
}

// String renders the slot label the way the center's page spells it,
// e.g. "II (–)".
func (k Key) String() string {
	return fmt.Sprintf("%s (%s)", k.Type, k.Rh)
}

// AllKeys returns the eight slots in page order: I..IV positive, then
// I..IV negative.
func AllKeys() []Key {
	return []Key{
		{TypeI, RhPlus}, {TypeII, RhPlus}, {TypeIII, RhPlus}, {TypeIV, RhPlus},
		{TypeI, RhMinus}, {TypeII, RhMinus}, {TypeIII, RhMinus}, {TypeIV, RhMinus},
	}
}
