package envelope

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"paychecked_admin/pkg/logger"

	"github.com/wechatpay-apiv3/wechatpay-go/utils"
	"go.uber.org/zap"
)

// Sign SHA256WithRSA (PKCS#1 v1.5) 签名，返回 Base64
func Sign(data []byte, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: private key is nil", ErrKeyLoad)
	}
	signature, err := utils.SignSHA256WithRSA(string(data), key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signature, nil
}

// Verify 验证 Base64 签名
// 签名不符是正常的否定结果，只记录日志并返回 false
func Verify(data []byte, signature string, key *rsa.PublicKey) bool {
	if key == nil {
		logger.Log.Warn("signature verification failed", zap.String("reason", "public key is nil"))
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		logger.Log.Warn("signature verification failed", zap.String("reason", "malformed base64"), zap.Error(err))
		return false
	}
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
		logger.Log.Warn("signature verification failed", zap.Error(err))
		return false
	}
	return true
}
