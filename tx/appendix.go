package tx

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
	"unicode/utf8"

	"github.com/lumechain/go-lume/account"
	"github.com/lumechain/go-lume/crypto"
	"github.com/lumechain/go-lume/params"
)

// Appendix is an optional, independently versioned sub-record of a
// transaction. Appendages carry their own size, fee, validation and
// apply behavior; they never outlive their transaction.
type Appendix interface {
	AppendixName() string
	Version() byte

	// Size is the wire size including the version tag byte, which
	// is present only for non-zero versions. This compact encoding
	// must be reproduced exactly for hash compatibility.
	Size() int
	FullSize() int
	PutBytes(buf *bytes.Buffer)

	// JSONObject is the structured (API-facing) form.
	JSONObject() map[string]interface{}

	BaselineFee(t *Transaction) Fee
	Validate(m *account.Manager, t *Transaction) error
	Apply(m *account.Manager, t *Transaction, sender, recipient *account.Account) error
	IsPhasable() bool
}

// versionTagSize is the wire overhead of the appendage version byte.
func versionTagSize(version byte) int {
	if version > 0 {
		return 1
	}
	return 0
}

func putVersion(buf *bytes.Buffer, version byte) {
	if version > 0 {
		buf.WriteByte(version)
	}
}

// parseVersion reads the appendage version: transactions of version 0
// never carry the tag byte.
func parseVersion(r *bytes.Reader, transactionVersion byte) (byte, error) {
	if transactionVersion == 0 {
		return 0, nil
	}
	return r.ReadByte()
}

// Message is an arbitrary payload of at most 1000 bytes, either raw
// binary or UTF-8 text.
type Message struct {
	version byte
	message []byte
	isText  bool
}

// messageFee charges one LUME per started 32 bytes of payload beyond
// the free first 32.
var messageFee = &SizeBasedFee{
	FeePerSize: params.OneLume,
	UnitSize:   32,
	Size: func(t *Transaction, a Appendix) int {
		return len(a.(*Message).message)
	},
}

// NewMessage creates a binary message appendage.
func NewMessage(message []byte) *Message {
	return &Message{version: 1, message: message}
}

// NewTextMessage creates a UTF-8 text message appendage.
func NewTextMessage(text string) *Message {
	return &Message{version: 1, message: []byte(text), isText: true}
}

// ParseMessage reads a message appendage from its wire form. The text
// flag travels in the sign bit of the length word.
func ParseMessage(r *bytes.Reader, transactionVersion byte) (*Message, error) {
	version, err := parseVersion(r, transactionVersion)
	if err != nil {
		return nil, notValidf("truncated message appendix")
	}
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, notValidf("truncated message appendix")
	}
	isText := length < 0
	if isText {
		length &= 0x7fffffff
	}
	if length > params.MaxArbitraryMessageLength {
		return nil, notValidf("invalid arbitrary message length %d", length)
	}
	message := make([]byte, length)
	if _, err := io.ReadFull(r, message); err != nil {
		return nil, notValidf("truncated message appendix")
	}
	if isText && !utf8.Valid(message) {
		return nil, notValidf("message is not UTF-8 text")
	}
	return &Message{version: version, message: message, isText: isText}, nil
}

func (a *Message) AppendixName() string { return "Message" }
func (a *Message) Version() byte        { return a.version }

func (a *Message) mySize() int {
	return 4 + len(a.message)
}

func (a *Message) Size() int {
	return a.mySize() + versionTagSize(a.version)
}

func (a *Message) FullSize() int {
	return a.Size()
}

func (a *Message) PutBytes(buf *bytes.Buffer) {
	putVersion(buf, a.version)
	length := int32(len(a.message))
	if a.isText {
		length |= -0x80000000
	}
	binary.Write(buf, binary.LittleEndian, length)
	buf.Write(a.message)
}

func (a *Message) JSONObject() map[string]interface{} {
	content := hex.EncodeToString(a.message)
	if a.isText {
		content = string(a.message)
	}
	return map[string]interface{}{
		"version.Message": a.version,
		"message":         content,
		"messageIsText":   a.isText,
	}
}

func (a *Message) BaselineFee(t *Transaction) Fee { return messageFee }

func (a *Message) Validate(m *account.Manager, t *Transaction) error {
	if len(a.message) > params.MaxArbitraryMessageLength {
		return notValidf("invalid arbitrary message length %d", len(a.message))
	}
	if a.isText && !utf8.Valid(a.message) {
		return notValidf("message is not UTF-8 text")
	}
	return nil
}

func (a *Message) Apply(m *account.Manager, t *Transaction, sender, recipient *account.Account) error {
	return nil
}

func (a *Message) IsPhasable() bool { return false }

// MessageBytes returns the payload.
func (a *Message) MessageBytes() []byte { return a.message }

// IsText reports whether the payload is UTF-8 text.
func (a *Message) IsText() bool { return a.isText }

// PublicKeyAnnouncement binds a public key to the transaction's
// recipient account.
type PublicKeyAnnouncement struct {
	version   byte
	publicKey []byte
}

// NewPublicKeyAnnouncement creates the appendage for the given
// recipient key.
func NewPublicKeyAnnouncement(publicKey []byte) *PublicKeyAnnouncement {
	return &PublicKeyAnnouncement{version: 1, publicKey: publicKey}
}

// ParsePublicKeyAnnouncement reads the appendage from its wire form.
func ParsePublicKeyAnnouncement(r *bytes.Reader, transactionVersion byte) (*PublicKeyAnnouncement, error) {
	version, err := parseVersion(r, transactionVersion)
	if err != nil {
		return nil, notValidf("truncated public key announcement")
	}
	publicKey := make([]byte, crypto.PublicKeyLength)
	if _, err := io.ReadFull(r, publicKey); err != nil {
		return nil, notValidf("truncated public key announcement")
	}
	return &PublicKeyAnnouncement{version: version, publicKey: publicKey}, nil
}

func (a *PublicKeyAnnouncement) AppendixName() string { return "PublicKeyAnnouncement" }
func (a *PublicKeyAnnouncement) Version() byte        { return a.version }

func (a *PublicKeyAnnouncement) Size() int {
	return crypto.PublicKeyLength + versionTagSize(a.version)
}

func (a *PublicKeyAnnouncement) FullSize() int {
	return a.Size()
}

func (a *PublicKeyAnnouncement) PutBytes(buf *bytes.Buffer) {
	putVersion(buf, a.version)
	buf.Write(a.publicKey)
}

func (a *PublicKeyAnnouncement) JSONObject() map[string]interface{} {
	return map[string]interface{}{
		"version.PublicKeyAnnouncement": a.version,
		"recipientPublicKey":            hex.EncodeToString(a.publicKey),
	}
}

func (a *PublicKeyAnnouncement) BaselineFee(t *Transaction) Fee { return NoFee }

func (a *PublicKeyAnnouncement) Validate(m *account.Manager, t *Transaction) error {
	if t.RecipientID == 0 {
		return notValidf("public key announcement without recipient")
	}
	if !crypto.IsCanonicalPublicKey(a.publicKey) {
		return notValidf("invalid recipient public key %s", hex.EncodeToString(a.publicKey))
	}
	if crypto.AccountID(a.publicKey) != t.RecipientID {
		return notValidf("announced public key does not match recipient account id")
	}
	recipientKey, err := m.PublicKey(t.RecipientID)
	if err != nil {
		return err
	}
	if recipientKey != nil && !bytes.Equal(a.publicKey, recipientKey) {
		return notCurrentlyValidf("a different public key for account %s has already been announced",
			crypto.AccountIDString(t.RecipientID))
	}
	return nil
}

func (a *PublicKeyAnnouncement) Apply(m *account.Manager, t *Transaction, sender, recipient *account.Account) error {
	ok, err := m.SetOrVerifyPublicKey(recipient.ID, a.publicKey)
	if err != nil {
		return err
	}
	if ok {
		return m.ApplyPublicKey(recipient, a.publicKey)
	}
	return nil
}

func (a *PublicKeyAnnouncement) IsPhasable() bool { return false }

// RecipientPublicKey returns the announced key.
func (a *PublicKeyAnnouncement) RecipientPublicKey() []byte { return a.publicKey }

var _ Appendix = (*Message)(nil)
var _ Appendix = (*PublicKeyAnnouncement)(nil)
