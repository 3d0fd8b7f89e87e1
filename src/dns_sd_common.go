package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the AGWPE over TCP service using DNS-SD, common functions
 *
 * Description:
 *
 *     Most people have typed in enough IP addresses and ports by now, and
 *     would rather just select an available packet engine that is
 *     automatically discovered on the local network.  Even more so on a
 *     mobile device such an Android or iOS phone or tablet.
 */

import (
	"os"
	"strings"
)

/* Get a default service name to publish. By default,
 * "Packet Engine on <hostname>", or just "Packet Engine" if hostname
 * cannot be obtained.
 */
func dns_sd_default_service_name() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "Packet Engine"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "Packet Engine on " + hostname
}
