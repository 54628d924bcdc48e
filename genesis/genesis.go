// Package genesis pins the identities and balances created in the
// genesis block.
package genesis

import (
	"encoding/hex"
	"sort"

	"github.com/lumechain/go-lume/params"
)

// CreatorID is the account behind the genesis block. It is the one
// account exempt from balance invariants: paying out the initial
// supply leaves it with a negative balance by construction.
const CreatorID uint64 = 3851000051458310113

// CreatorPublicKey is the public key bound to CreatorID.
var CreatorPublicKey = mustHex("7e3c89285c604def32b000f0d00e57710eeaa4630a30da27ec34825571aba475")

// Recipients lists the accounts funded at height 0, sorted by id.
var Recipients = []uint64{
	2293823112475660450,
	2493852803425131099,
	4028405726484572256,
	7894068279220640975,
	9493070465178532257,
	10263303497855355163,
	10329514730617193232,
	14320879361344776120,
}

// Amounts holds the initial balance, in quill, of the recipient at
// the same index in Recipients. The amounts sum to params.MaxBalance.
var Amounts = []int64{
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
	1111111111 * params.OneLume,
}

// IsRecipient reports whether id received part of the initial supply.
func IsRecipient(id uint64) bool {
	i := sort.Search(len(Recipients), func(i int) bool { return Recipients[i] >= id })
	return i < len(Recipients) && Recipients[i] == id
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
