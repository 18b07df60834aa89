package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/accountd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestOTPIssueAndVerify(t *testing.T) {
	st := newTestStore(t)
	sender := &fakeSender{}
	svc := &OTPService{Store: st, Sender: sender, AppName: "accountd-test"}

	issued, err := svc.Issue(context.Background(), "OTP@Example.com")
	require.NoError(t, err)

	require.Equal(t, "otp@example.com", issued.Email)
	require.Len(t, issued.Code, 6)
	require.Regexp(t, `^[0-9]{6}$`, issued.Code)

	// The plaintext code went out by mail, to the normalized address.
	require.Equal(t, []string{"otp@example.com"}, sender.to)
	require.Contains(t, sender.bodies[0], issued.Code)

	// Only the fingerprint is persisted.
	rec, err := st.OTPCodes().GetOTPCode(context.Background(), "otp@example.com")
	require.NoError(t, err)
	require.NotEqual(t, issued.Code, rec.Code)
	require.Equal(t, cryptox.FingerprintToken(issued.Code), rec.Code)

	t.Run("wrong code", func(t *testing.T) {
		wrong := "000000"
		if wrong == issued.Code {
			wrong = "000001"
		}
		ok, err := svc.Verify(context.Background(), "otp@example.com", wrong)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("correct code consumes once", func(t *testing.T) {
		ok, err := svc.Verify(context.Background(), "otp@example.com", issued.Code)
		require.NoError(t, err)
		require.True(t, ok)

		// Replays see nothing.
		ok, err = svc.Verify(context.Background(), "otp@example.com", issued.Code)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestOTPVerifyRejectsMalformedCodes(t *testing.T) {
	st := newTestStore(t)
	svc := &OTPService{Store: st, Sender: &fakeSender{}, AppName: "accountd-test"}

	for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456"} {
		ok, err := svc.Verify(context.Background(), "nobody@example.com", code)
		require.NoError(t, err)
		require.False(t, ok, "code %q must not verify", code)
	}
}

func TestOTPVerifyUnknownEmail(t *testing.T) {
	st := newTestStore(t)
	svc := &OTPService{Store: st, Sender: &fakeSender{}, AppName: "accountd-test"}

	ok, err := svc.Verify(context.Background(), "nobody@example.com", "123456")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPReissueSupersedes(t *testing.T) {
	st := newTestStore(t)
	sender := &fakeSender{}
	svc := &OTPService{Store: st, Sender: sender, AppName: "accountd-test"}

	first, err := svc.Issue(context.Background(), "super@example.com")
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "super@example.com")
	require.NoError(t, err)

	if first.Code != second.Code {
		ok, err := svc.Verify(context.Background(), "super@example.com", first.Code)
		require.NoError(t, err)
		require.False(t, ok, "superseded code must not verify")
	}

	ok, err := svc.Verify(context.Background(), "super@example.com", second.Code)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOTPVerifyExpiredCode(t *testing.T) {
	st := newTestStore(t)
	svc := &OTPService{Store: st, Sender: &fakeSender{}, AppName: "accountd-test"}

	// Plant a record that has already expired.
	err := st.OTPCodes().UpsertOTPCode(
		context.Background(),
		"expired@example.com",
		cryptox.FingerprintToken("123456"),
		time.Now().UTC().Add(-time.Minute),
	)
	require.NoError(t, err)

	ok, err := svc.Verify(context.Background(), "expired@example.com", "123456")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPIssueDeliveryFailure(t *testing.T) {
	st := newTestStore(t)
	sender := &fakeSender{err: errors.New("relay down")}
	svc := &OTPService{Store: st, Sender: sender, AppName: "accountd-test"}

	_, err := svc.Issue(context.Background(), "fail@example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "relay down")
}

func TestHousekeepingSweep(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.OTPCodes().UpsertOTPCode(
		context.Background(), "old@example.com",
		cryptox.FingerprintToken("111111"), time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, st.OTPCodes().UpsertOTPCode(
		context.Background(), "fresh@example.com",
		cryptox.FingerprintToken("222222"), time.Now().UTC().Add(time.Hour)))

	require.NoError(t, st.OTPCodes().DeleteExpiredOTPCodes(context.Background()))

	_, err := st.OTPCodes().GetOTPCode(context.Background(), "old@example.com")
	require.Error(t, err)

	_, err = st.OTPCodes().GetOTPCode(context.Background(), "fresh@example.com")
	require.NoError(t, err)
}
