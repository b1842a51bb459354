// Package envelopetest 提供测试用的 RSA 密钥与 AES 凭证
package envelopetest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"paychecked_admin/pkg/envelope"

	"github.com/stretchr/testify/require"
)

var (
	AESKey = []byte("0123456789abcdef")
	AESIV  = []byte("fedcba9876543210")
)

// KeyPair 写入临时目录的 RSA 密钥对
type KeyPair struct {
	Private     *rsa.PrivateKey
	PrivatePath string
	PublicPath  string
}

// NewKeyPair 生成 2048 位密钥，私钥 PKCS#8，公钥 PKIX
func NewKeyPair(t testing.TB) KeyPair {
	t.Helper()
	dir := t.TempDir()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	kp := KeyPair{
		Private:     key,
		PrivatePath: filepath.Join(dir, "client_private.key"),
		PublicPath:  filepath.Join(dir, "server_public.pem"),
	}
	require.NoError(t, os.WriteFile(kp.PrivatePath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600))
	require.NoError(t, os.WriteFile(kp.PublicPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644))
	return kp
}

// Options 以同一密钥对同时充当客户端与闸道，便于回环测试
func (kp KeyPair) Options() envelope.Options {
	return envelope.Options{
		PrivateKeyPath: kp.PrivatePath,
		PublicKeyPath:  kp.PublicPath,
		AESKey:         AESKey,
		AESIV:          AESIV,
	}
}

// SignBody 以私钥对响应内容签名，模拟闸道
func (kp KeyPair) SignBody(t testing.TB, body []byte) string {
	t.Helper()
	sig, err := envelope.Sign(body, kp.Private)
	require.NoError(t, err)
	return sig
}

// EncryptJSON 以测试 AES 凭证加密，模拟闸道回传的 EncData 原文
func EncryptJSON(t testing.TB, plaintext string) []byte {
	t.Helper()
	ct, err := envelope.AESEncrypt([]byte(plaintext), AESKey, AESIV)
	require.NoError(t, err)
	return ct
}
