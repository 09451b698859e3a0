package crypto

import "fmt"

// CalculateRounds returns the iteration count for a password of the given
// UTF-8 byte length. Short passwords get exponentially more rounds; bonus
// is added on top and the result is clamped to [RoundsMin, RoundsMax].
func CalculateRounds(passwordLength int, bonus uint32) (uint32, error) {
	if passwordLength <= 0 {
		return 0, fmt.Errorf("%w: length %d", ErrInvalidPassword, passwordLength)
	}
	if bonus >= RoundsMax-2 {
		return RoundsMax, nil
	}

	exponent := 24 - min(max(passwordLength, 1), 23)
	rounds := uint64(1)<<exponent + uint64(bonus)
	return uint32(min(max(rounds, RoundsMin), RoundsMax)), nil
}

// ValidateRounds reports whether rounds is inside [RoundsMin, RoundsMax].
func ValidateRounds(rounds uint32) error {
	if rounds < RoundsMin || rounds > RoundsMax {
		return fmt.Errorf("%w: got %d, want %d..%d", ErrRoundsOutOfRange, rounds, RoundsMin, RoundsMax)
	}
	return nil
}
