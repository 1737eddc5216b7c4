package ledger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"fedra/domain/federation"
)

// federationABI mirrors the Federation contract deployed on the
// consortium chain. Function and event names are fixed by the
// contract; all event arguments are unindexed and decode from the
// log data.
const federationABI = `[
  {"type":"function","name":"addOperator","stateMutability":"nonpayable","inputs":[{"name":"name","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"removeOperator","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"AnnounceService","stateMutability":"nonpayable","inputs":[{"name":"_requirements","type":"bytes"},{"name":"_endpoint_consumer","type":"bytes"},{"name":"_id","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"PlaceBid","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"bytes32"},{"name":"_price","type":"uint256"},{"name":"_endpoint","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"ChooseProvider","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"bytes32"},{"name":"bider_index","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"ServiceDeployed","stateMutability":"nonpayable","inputs":[{"name":"info","type":"bytes"},{"name":"_id","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"GetServiceState","stateMutability":"view","inputs":[{"name":"_id","type":"bytes32"}],"outputs":[{"name":"state","type":"uint8"}]},
  {"type":"function","name":"GetBid","stateMutability":"view","inputs":[{"name":"_id","type":"bytes32"},{"name":"bider_index","type":"uint256"},{"name":"_creator","type":"address"}],"outputs":[{"name":"provider","type":"address"},{"name":"price","type":"uint256"},{"name":"index","type":"uint256"}]},
  {"type":"function","name":"GetServiceInfo","stateMutability":"view","inputs":[{"name":"_id","type":"bytes32"},{"name":"provider","type":"bool"},{"name":"call_address","type":"address"}],"outputs":[{"name":"id","type":"bytes32"},{"name":"endpoint","type":"bytes"},{"name":"host","type":"bytes"}]},
  {"type":"function","name":"isWinner","stateMutability":"view","inputs":[{"name":"_id","type":"bytes32"},{"name":"_winner","type":"address"}],"outputs":[{"name":"won","type":"bool"}]},
  {"type":"event","name":"OperatorRegistered","anonymous":false,"inputs":[{"name":"operator","type":"address","indexed":false}]},
  {"type":"event","name":"OperatorRemoved","anonymous":false,"inputs":[{"name":"operator","type":"address","indexed":false}]},
  {"type":"event","name":"ServiceAnnouncement","anonymous":false,"inputs":[{"name":"requirements","type":"bytes","indexed":false},{"name":"id","type":"bytes32","indexed":false}]},
  {"type":"event","name":"NewBid","anonymous":false,"inputs":[{"name":"_id","type":"bytes32","indexed":false},{"name":"max_bid_index","type":"uint256","indexed":false}]},
  {"type":"event","name":"ServiceAnnouncementClosed","anonymous":false,"inputs":[{"name":"_id","type":"bytes32","indexed":false}]},
  {"type":"event","name":"ServiceDeployedEvent","anonymous":false,"inputs":[{"name":"_id","type":"bytes32","indexed":false}]}
]`

// FederationABI returns the parsed contract ABI.
func FederationABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(federationABI))
}

// ToBytes32 packs a short string into the contract's bytes32
// representation, NUL-padded on the right. Oversized input is caught
// here, before anything reaches the ledger.
func ToBytes32(s string) ([32]byte, error) {
	var b [32]byte
	if len(s) > 32 {
		return b, fmt.Errorf("%w: %q does not fit bytes32", federation.ErrMalformed, s)
	}
	copy(b[:], s)
	return b, nil
}

// FromBytes32 undoes ToBytes32.
func FromBytes32(b [32]byte) string {
	return string(bytes.TrimRight(b[:], "\x00"))
}

// TrimBytes strips the NUL padding the contract leaves on dynamic
// byte fields.
func TrimBytes(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
