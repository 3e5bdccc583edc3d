package access

import "github.com/ethereum/go-ethereum/common"

// Controller answers whether a caller may run admin operations.
type Controller interface {
	IsAdmin(caller common.Address) bool
}

// StaticAdmins is a fixed admin set built at startup.
type StaticAdmins struct {
	admins map[common.Address]struct{}
}

// NewStaticAdmins builds an admin set from the given addresses.
func NewStaticAdmins(addrs []common.Address) *StaticAdmins {
	set := make(map[common.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		set[addr] = struct{}{}
	}
	return &StaticAdmins{admins: set}
}

func (s *StaticAdmins) IsAdmin(caller common.Address) bool {
	_, ok := s.admins[caller]
	return ok
}
