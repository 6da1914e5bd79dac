package scan

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultMaxTargets bounds the size of a plan.
const DefaultMaxTargets = 512

// DefaultCommonOctets are host octets routers commonly hand out to TVs.
var DefaultCommonOctets = []int{100, 101, 102, 110, 150, 200, 10, 20, 50}

// Planner errors.
var (
	ErrInvalidAddress   = errors.New("invalid IPv4 address")
	ErrUnsupportedRange = errors.New("unsupported range")
	ErrCrossSubnet      = fmt.Errorf("%w: range must stay within a single /24 subnet", ErrUnsupportedRange)
	ErrRangeTooLarge    = fmt.Errorf("%w: range too large", ErrUnsupportedRange)
	ErrNoLocalAddress   = errors.New("no local IPv4 address found")
)

// Plan is an ordered, deduplicated list of scan targets.
type Plan struct {
	Targets []string

	// Description explains how the targets were derived, one line each.
	Description []string
}

// Planner builds Plans from seeds.
type Planner struct {
	CommonOctets []int
	MaxTargets   int

	// LocalIPv4 finds the address used for an empty seed.
	LocalIPv4 func() (net.IP, error)
}

// NewPlanner returns a Planner with default settings.
func NewPlanner() *Planner {
	return &Planner{
		CommonOctets: append([]int(nil), DefaultCommonOctets...),
		MaxTargets:   DefaultMaxTargets,
		LocalIPv4:    LocalIPv4,
	}
}

// Plan parses seed into a Plan.
func (p *Planner) Plan(seed string) (*Plan, error) {
	seed = strings.TrimSpace(seed)
	switch {
	case seed == "":
		return p.planLocal()
	case strings.Contains(seed, "/"):
		return p.planCIDR(seed)
	case strings.Contains(seed, "-"):
		return p.planRange(seed)
	default:
		ip, err := parseIPv4(seed)
		if err != nil {
			return nil, err
		}
		plan := &Plan{Description: []string{"Seed IP: " + ip.String()}}
		p.expandSubnet(plan, ip)
		return plan, nil
	}
}

func (p *Planner) planLocal() (*Plan, error) {
	lookup := p.LocalIPv4
	if lookup == nil {
		lookup = LocalIPv4
	}
	local, err := lookup()
	if err != nil {
		return nil, err
	}
	ip := local.To4()
	if ip == nil {
		return nil, ErrNoLocalAddress
	}

	prefix := prefixOf(ip)
	plan := &Plan{Description: []string{
		"Local IP: " + ip.String(),
		fmt.Sprintf("Scanning common addresses in %s.0/24", prefix),
	}}
	seen := make(map[int]bool)
	for _, octet := range p.commonOctets() {
		if seen[octet] || len(plan.Targets) >= p.maxTargets() {
			continue
		}
		seen[octet] = true
		plan.Targets = append(plan.Targets, fmt.Sprintf("%s.%d", prefix, octet))
	}
	return plan, nil
}

func (p *Planner) planCIDR(seed string) (*Plan, error) {
	addr, bits, _ := strings.Cut(seed, "/")
	ip, err := parseIPv4(addr)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, seed)
	}
	if n != 24 {
		return nil, fmt.Errorf("%w: only /24 networks are supported, got /%d", ErrUnsupportedRange, n)
	}

	plan := &Plan{}
	p.expandSubnet(plan, ip)
	return plan, nil
}

func (p *Planner) planRange(seed string) (*Plan, error) {
	startStr, endStr, _ := strings.Cut(seed, "-")
	start, err := parseIPv4(strings.TrimSpace(startStr))
	if err != nil {
		return nil, err
	}

	endStr = strings.TrimSpace(endStr)
	var end net.IP
	if strings.Contains(endStr, ".") {
		if end, err = parseIPv4(endStr); err != nil {
			return nil, err
		}
	} else {
		octet, err := parseOctet(endStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, seed)
		}
		end = net.IPv4(start[0], start[1], start[2], byte(octet)).To4()
	}

	if prefixOf(start) != prefixOf(end) {
		return nil, ErrCrossSubnet
	}
	first, last := int(start[3]), int(end[3])
	if first > last {
		return nil, fmt.Errorf("%w: range start %s is after end %s", ErrInvalidAddress, start, end)
	}
	count := last - first + 1
	if count > p.maxTargets() {
		return nil, fmt.Errorf("%w: %d addresses exceeds the limit of %d", ErrRangeTooLarge, count, p.maxTargets())
	}

	prefix := prefixOf(start)
	plan := &Plan{
		Targets: make([]string, 0, count),
		Description: []string{
			fmt.Sprintf("Scanning range: %s-%s (%d addresses)", start, end, count),
		},
	}
	for octet := first; octet <= last; octet++ {
		plan.Targets = append(plan.Targets, fmt.Sprintf("%s.%d", prefix, octet))
	}
	return plan, nil
}

// expandSubnet fills plan with the hosts of ip's /24, common octets first.
func (p *Planner) expandSubnet(plan *Plan, ip net.IP) {
	prefix := prefixOf(ip)
	limit := p.maxTargets()

	seen := make(map[int]bool, 254)
	add := func(octet int) {
		if seen[octet] || octet < 1 || octet > 254 || len(plan.Targets) >= limit {
			return
		}
		seen[octet] = true
		plan.Targets = append(plan.Targets, fmt.Sprintf("%s.%d", prefix, octet))
	}
	for _, octet := range p.commonOctets() {
		add(octet)
	}
	for octet := 1; octet <= 254; octet++ {
		add(octet)
	}

	plan.Description = append(plan.Description,
		fmt.Sprintf("Scanning derived range: %s.0/24 (%d addresses)", prefix, len(plan.Targets)))
}

func (p *Planner) commonOctets() []int {
	if p.CommonOctets == nil {
		return DefaultCommonOctets
	}
	return p.CommonOctets
}

func (p *Planner) maxTargets() int {
	if p.MaxTargets <= 0 {
		return DefaultMaxTargets
	}
	return p.MaxTargets
}

// parseIPv4 accepts exactly four dot-separated decimal octets.
func parseIPv4(s string) (net.IP, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var b [4]byte
	for i, part := range parts {
		v, err := parseOctet(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		b[i] = byte(v)
	}
	return net.IPv4(b[0], b[1], b[2], b[3]).To4(), nil
}

func parseOctet(s string) (int, error) {
	if s == "" || len(s) > 3 {
		return 0, ErrInvalidAddress
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAddress
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v > 255 {
		return 0, ErrInvalidAddress
	}
	return v, nil
}

// prefixOf returns the first three octets of a 4-byte IP.
func prefixOf(ip net.IP) string {
	return fmt.Sprintf("%d.%d.%d", ip[0], ip[1], ip[2])
}
