package p2p

import (
	"crypto/ecdsa"
	"fmt"
	"net"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/p2p/enr"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// LocalIdentity manages this node's ENR (Ethereum Node Record) and the
// secp256k1 key backing it, so this node's own address can be published to
// peers in the same format bootnode lists use. Grounded on
// geanlabs-gean/network/p2p/enr.go's LocalNodeManager.
type LocalIdentity struct {
	db      *enode.DB
	local   *enode.LocalNode
	privKey *ecdsa.PrivateKey
}

// NewLocalIdentity loads (or generates, persisting to nodeKeyPath) this
// node's secp256k1 identity key and opens an ENR record database at dbPath.
func NewLocalIdentity(dbPath, nodeKeyPath string, ip net.IP, udpPort, tcpPort int) (*LocalIdentity, error) {
	privKey, err := loadOrGenerateNodeKey(nodeKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load node key: %w", err)
	}

	db, err := enode.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open enode db: %w", err)
	}

	local := enode.NewLocalNode(db, privKey)
	local.Set(enr.IP(ip))
	local.Set(enr.UDP(udpPort))
	if tcpPort != 0 {
		local.Set(enr.TCP(tcpPort))
	}

	return &LocalIdentity{db: db, local: local, privKey: privKey}, nil
}

func (m *LocalIdentity) Node() *enode.Node           { return m.local.Node() }
func (m *LocalIdentity) PrivateKey() *ecdsa.PrivateKey { return m.privKey }
func (m *LocalIdentity) Close()                       { m.db.Close() }

// ENRToAddrInfo decodes an ENR string (bootnode list entry) into a libp2p
// AddrInfo over QUIC, per geanlabs-gean/network/p2p/enr.go's
// ENRToAddrInfo.
func ENRToAddrInfo(enrStr string) (*peer.AddrInfo, error) {
	node, err := enode.Parse(enode.ValidSchemes, enrStr)
	if err != nil {
		return nil, fmt.Errorf("parse enr: %w", err)
	}

	ip := node.IP()
	if ip == nil {
		return nil, fmt.Errorf("enr has no IP")
	}

	var quicPort enr.QUIC
	if err := node.Record().Load(&quicPort); err != nil {
		return nil, fmt.Errorf("enr has no quic port: %w", err)
	}

	pubkey := node.Pubkey()
	if pubkey == nil {
		return nil, fmt.Errorf("enr has no public key")
	}
	compressed := crypto.CompressPubkey(pubkey)
	libp2pKey, err := libp2pcrypto.UnmarshalSecp256k1PublicKey(compressed)
	if err != nil {
		return nil, fmt.Errorf("convert enr pubkey to libp2p key: %w", err)
	}
	pid, err := peer.IDFromPublicKey(libp2pKey)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}

	addr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/udp/%d/quic-v1", ip, quicPort))
	if err != nil {
		return nil, fmt.Errorf("build multiaddr: %w", err)
	}

	return &peer.AddrInfo{ID: pid, Addrs: []ma.Multiaddr{addr}}, nil
}

// ParseENRBootnodes decodes a list of ENR strings into AddrInfo, skipping
// entries that don't carry QUIC connectivity info rather than failing the
// whole list — a single misconfigured bootnode shouldn't prevent the node
// from dialing the rest.
func ParseENRBootnodes(enrs []string) []peer.AddrInfo {
	var out []peer.AddrInfo
	for _, s := range enrs {
		ai, err := ENRToAddrInfo(s)
		if err != nil {
			continue
		}
		out = append(out, *ai)
	}
	return out
}

func loadOrGenerateNodeKey(path string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		if err := crypto.SaveECDSA(path, key); err != nil {
			return nil, err
		}
		return key, nil
	}

	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, nil
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("read node key file: %w", readErr)
	}
	if len(data) == 32 {
		return crypto.ToECDSA(data)
	}

	sk, unmarshalErr := libp2pcrypto.UnmarshalPrivateKey(data)
	if unmarshalErr == nil {
		raw, rawErr := sk.Raw()
		if rawErr != nil {
			return nil, fmt.Errorf("extract raw key bytes: %w", rawErr)
		}
		return crypto.ToECDSA(raw)
	}

	return nil, fmt.Errorf("unrecognized node key format: %w", err)
}
