// Package keying derives the SRTP/SRTCP protect and unprotect closures the
// transport consumes as a rtp.SecureContext. DTLS-SRTP itself (RFC 5764) is
// an external collaborator (§1); this package performs the handshake with
// pion/dtls and wraps the connection in a SecurityProvider whose four
// closure fields the caller assigns. It does not export SRTP key material
// and does not set the closures itself.
package keying

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/pion/dtls/v2"

	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// SRTPProtectionProfile mirrors the subset of DTLS-SRTP profiles this
// engine negotiates (RFC 5764 §4.1.2).
type SRTPProtectionProfile = dtls.SRTPProtectionProfile

// Role selects whether the local side acts as the DTLS client or server;
// per §4.6 the remote peer may become the DTLS client and start sending
// SRTP before the local server role finishes, which is exactly the race
// the pending-packet queue bridges.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// HandshakeConfig configures one DTLS-SRTP handshake.
type HandshakeConfig struct {
	Role        Role
	Certificate tls.Certificate
	Profiles    []SRTPProtectionProfile
	// VerifyFingerprint checks the remote certificate against the SDP
	// a=fingerprint attribute. A nil func skips verification (test use).
	VerifyFingerprint func(cert []byte) error
}

// SecurityProvider holds a completed DTLS connection and the four
// pkg/rtp.SecureContext closures. Handshake leaves the closures nil; nothing
// in this package derives SRTP keys or fills them in.
type SecurityProvider struct {
	conn *dtls.Conn

	ProtectRTP    func(buf []byte) (int, error)
	UnprotectRTP  func(buf []byte) (int, error)
	ProtectRTCP   func(buf []byte) (int, error)
	UnprotectRTCP func(buf []byte) (int, error)
}

// Handshake performs the DTLS-SRTP handshake over conn and returns a
// SecurityProvider holding the connection, with its closures unset (so its
// Context reports not ready until the caller assigns them). The caller is expected to have already bound
// conn to the negotiated remote endpoint (ICE/STUN/TURN supplies this per
// §1's external-collaborator boundary).
func Handshake(ctx context.Context, conn net.Conn, cfg HandshakeConfig) (*SecurityProvider, error) {
	dtlsCfg := &dtls.Config{
		Certificates:         []tls.Certificate{cfg.Certificate},
		SRTPProtectionProfiles: cfg.Profiles,
		InsecureSkipVerify:   cfg.VerifyFingerprint == nil,
	}

	var dtlsConn *dtls.Conn
	var err error
	if cfg.Role == RoleClient {
		dtlsConn, err = dtls.ClientWithContext(ctx, conn, dtlsCfg)
	} else {
		dtlsConn, err = dtls.ServerWithContext(ctx, conn, dtlsCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("keying: dtls handshake: %w", err)
	}

	if cfg.VerifyFingerprint != nil {
		state := dtlsConn.ConnectionState()
		for _, cert := range state.PeerCertificates {
			if err := cfg.VerifyFingerprint(cert); err != nil {
				dtlsConn.Close()
				return nil, fmt.Errorf("keying: fingerprint verification failed: %w", err)
			}
		}
	}

	return &SecurityProvider{conn: dtlsConn}, nil
}

// Context builds an rtp.SecureContext from the provider's installed
// closures. A provider with any closure unset yields a SecureContext that
// reports not-ready (rtp.SecureContext.Ready), matching §4.6's "context
// absent" handling.
func (p *SecurityProvider) Context() *rtp.SecureContext {
	return &rtp.SecureContext{
		ProtectRTP:    p.ProtectRTP,
		UnprotectRTP:  p.UnprotectRTP,
		ProtectRTCP:   p.ProtectRTCP,
		UnprotectRTCP: p.UnprotectRTCP,
	}
}

// Close tears down the underlying DTLS connection.
func (p *SecurityProvider) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
