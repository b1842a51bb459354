package envelope

import "errors"

var (
	// ErrKeyLoad 密钥文件不存在、无法解析或长度不正确
	ErrKeyLoad = errors.New("key load failed")
	// ErrSigning RSA 签名失败
	ErrSigning = errors.New("rsa signing failed")
	// ErrPadding 解密后 PKCS#7 填充不合法
	ErrPadding = errors.New("invalid pkcs7 padding")
)
