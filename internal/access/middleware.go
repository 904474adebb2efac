// Package access decides which clients may reach the API and how they are identified.
package access

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abduss/imgbed/internal/config"
)

const clientContextKey = "imgbedClient"

// Whitelist matches client addresses against single IPs and CIDR prefixes.
type Whitelist struct {
	prefixes []netip.Prefix
}

// ParseWhitelist accepts entries like "10.0.0.7", "::1" or "192.168.0.0/16".
func ParseWhitelist(entries []string) (*Whitelist, error) {
	wl := &Whitelist{}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("parse whitelist entry %q: %w", entry, err)
			}
			wl.prefixes = append(wl.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("parse whitelist entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		wl.prefixes = append(wl.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return wl, nil
}

// Allows reports whether ip falls into one of the entries.
func (w *Whitelist) Allows(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range w.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Middleware stores the client id on the context and, when the whitelist is
// enabled, rejects clients outside it.
func Middleware(cfg config.AccessConfig) (gin.HandlerFunc, error) {
	var wl *Whitelist
	if cfg.WhitelistEnabled {
		parsed, err := ParseWhitelist(cfg.Whitelist)
		if err != nil {
			return nil, err
		}
		wl = parsed
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		c.Set(clientContextKey, ip)

		if wl != nil && !wl.Allows(ip) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "access denied"})
			return
		}
		c.Next()
	}, nil
}

// ClientID returns the identifier used for rate limiting.
func ClientID(c *gin.Context) string {
	if id := c.GetString(clientContextKey); id != "" {
		return id
	}
	return c.ClientIP()
}
