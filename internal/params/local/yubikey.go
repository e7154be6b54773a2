package local

import (
	"context"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
)

// execResponder drives a YubiKey through the ykpers command line tools:
// ykinfo for the serial number, ykchalresp for HMAC-SHA1
// challenge-response on a configured OTP slot. Both calls block on the
// physical device (slots may require a touch), so they honor ctx.
type execResponder struct{}

// NewExecResponder returns the default hardware token backend.
func NewExecResponder() ChallengeResponder {
	return execResponder{}
}

func (execResponder) Serial(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "ykinfo", "-s", "-q").Output()
	if err != nil {
		return "", fmt.Errorf("ykinfo: %w", err)
	}
	serial := strings.TrimSpace(string(out))
	if serial == "" {
		return "", fmt.Errorf("ykinfo: no device serial reported")
	}
	return serial, nil
}

func (execResponder) Respond(ctx context.Context, slot int, challenge []byte) ([]byte, error) {
	out, err := exec.CommandContext(ctx,
		"ykchalresp", fmt.Sprintf("-%d", slot), "-x", hex.EncodeToString(challenge),
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ykchalresp: %w", err)
	}
	response, err := hex.DecodeString(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("ykchalresp: decode response: %w", err)
	}
	return response, nil
}
