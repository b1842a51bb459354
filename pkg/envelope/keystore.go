package envelope

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"

	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

// KeyStore 按文件路径缓存已解析的 RSA 密钥
// 密钥在进程生命周期内不变，加载失败不缓存，下次调用重新读取
type KeyStore struct {
	mu          sync.Mutex
	privateKeys map[string]*rsa.PrivateKey
	publicKeys  map[string]*rsa.PublicKey
}

func NewKeyStore() *KeyStore {
	return &KeyStore{
		privateKeys: make(map[string]*rsa.PrivateKey),
		publicKeys:  make(map[string]*rsa.PublicKey),
	}
}

// PrivateKey 加载客户端私钥，支持 PKCS#8 与 PKCS#1
func (s *KeyStore) PrivateKey(path string) (*rsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.privateKeys[path]; ok {
		return key, nil
	}
	raw, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: private key %s: %v", ErrKeyLoad, path, err)
	}
	s.privateKeys[path] = key
	return key, nil
}

// PublicKey 加载对方公钥，支持 PUBLIC KEY 与 CERTIFICATE
func (s *KeyStore) PublicKey(path string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.publicKeys[path]; ok {
		return key, nil
	}
	raw, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	key, err := parsePublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: public key %s: %v", ErrKeyLoad, path, err)
	}
	s.publicKeys[path] = key
	return key, nil
}

func readKeyFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: key path is empty", ErrKeyLoad)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLoad, err)
	}
	return raw, nil
}

func parsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	return utils.LoadPrivateKey(string(raw))
}

func parsePublicKey(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	switch block.Type {
	case "CERTIFICATE":
		cert, err := utils.LoadCertificate(string(raw))
		if err != nil {
			return nil, err
		}
		key, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("certificate does not carry an RSA public key")
		}
		return key, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return utils.LoadPublicKey(string(raw))
	}
}
