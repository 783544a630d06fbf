package chain

import (
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
)

const (
	publicKeyLen = 32
	checksumLen  = 4
)

var base32Encoder = base32.StdEncoding.WithPadding(base32.NoPadding)

// EncodeAddress renders a raw 32-byte public key in the chain's canonical
// base32-with-checksum address form.
func EncodeAddress(publicKey []byte) string {
	if len(publicKey) != publicKeyLen {
		return ""
	}
	checksum := sha512.Sum512_256(publicKey)

	buf := make([]byte, 0, publicKeyLen+checksumLen)
	buf = append(buf, publicKey...)
	buf = append(buf, checksum[len(checksum)-checksumLen:]...)
	return base32Encoder.EncodeToString(buf)
}

// AppAddress derives the escrow account address of an application.
func AppAddress(appID uint64) string {
	data := make([]byte, 0, len("appID")+8)
	data = append(data, []byte("appID")...)
	data = binary.BigEndian.AppendUint64(data, appID)
	digest := sha512.Sum512_256(data)
	return EncodeAddress(digest[:])
}

// ZeroAddress is the all-zero public key address, the sender of mint
// transfers.
var ZeroAddress = EncodeAddress(make([]byte, publicKeyLen))

// IsZeroAddress reports whether an address is the zero address.
func IsZeroAddress(addr string) bool {
	return addr == "" || addr == ZeroAddress
}
