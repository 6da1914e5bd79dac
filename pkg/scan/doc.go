// Package scan turns a user-supplied seed into the ordered list of IPv4
// addresses a discovery run should probe.
//
// A seed is one of:
//
//   - empty: the local /24, restricted to commonly assigned host octets
//   - a bare address ("192.168.1.15"): every host of its /24
//   - a CIDR ("192.168.1.0/24"): every host of the /24; other prefixes fail
//   - a range ("192.168.1.10-40" or "192.168.1.10-192.168.1.40")
//
// Full /24 expansions put the common octets first, in their declared order,
// followed by the remaining hosts in ascending order. A plan never leaves the
// seed's /24 and never holds more than Planner.MaxTargets addresses.
package scan
