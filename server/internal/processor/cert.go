package processor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"math"
	"net"
	"net/url"
	"time"
)

// expiringDays is the window in which a certificate is reported as expiring.
const expiringDays = 30

// CertStatus describes the leaf certificate of the processing service.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	AuthType string `json:"auth_type"`
	Status   string `json:"status"` // valid | expiring | expired | unreachable
	DaysLeft int    `json:"days_left"`
	Issuer   string `json:"issuer,omitempty"`
	NotAfter string `json:"not_after,omitempty"` // RFC3339
}

// CheckCert dials the processing service and inspects its TLS certificate.
// It returns nil when no URL is configured or the URL is not https.
func (c *Client) CheckCert(ctx context.Context) *CertStatus {
	if !c.Enabled() {
		return nil
	}
	u, err := url.Parse(c.url)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: c.url, AuthType: c.authMode}
	if cs.AuthType == "" {
		cs.AuthType = "none"
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: c.insecure, //nolint:gosec // user-configured
		},
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = "unreachable"
		return cs
	}
	defer conn.Close()

	peers := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(peers) == 0 {
		cs.Status = "unreachable"
		return cs
	}
	leafStatus(cs, peers[0], time.Now())
	return cs
}

// leafStatus fills the expiry fields of cs from leaf as seen at now.
func leafStatus(cs *CertStatus, leaf *x509.Certificate, now time.Time) {
	daysLeft := leaf.NotAfter.Sub(now).Hours() / 24

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		cs.Status = "expired"
	case daysLeft <= expiringDays:
		cs.Status = "expiring"
	default:
		cs.Status = "valid"
	}
}
