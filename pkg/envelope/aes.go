package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// BlockSize AES 区块大小
const BlockSize = aes.BlockSize

// Pad PKCS#7 填充，长度为 16 - len%16，区块对齐时补满一整块
func Pad(b []byte) []byte {
	padLen := BlockSize - len(b)%BlockSize
	out := make([]byte, len(b), len(b)+padLen)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// Unpad 严格去除 PKCS#7 填充
func Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrPadding)
	}
	padLen := int(b[len(b)-1])
	if padLen < 1 || padLen > BlockSize || padLen > len(b) {
		return nil, fmt.Errorf("%w: pad length %d", ErrPadding, padLen)
	}
	for _, c := range b[len(b)-padLen:] {
		if int(c) != padLen {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", ErrPadding)
		}
	}
	return b[:len(b)-padLen], nil
}

// unpadLenient 旧系统行为：直接以末字节为长度截断，不做校验
// 长度为 0 或超过数据长度时结果为空
func unpadLenient(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	padLen := int(b[len(b)-1])
	if padLen == 0 || padLen >= len(b) {
		return b[:0]
	}
	return b[:len(b)-padLen]
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("%w: aes key must be 16 bytes, got %d", ErrKeyLoad, len(key))
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: aes iv must be %d bytes, got %d", ErrKeyLoad, BlockSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLoad, err)
	}
	return block, nil
}

// AESEncrypt AES-128-CBC 加密
func AESEncrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	padded := Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// AESDecrypt AES-128-CBC 解密并严格去填充
func AESDecrypt(ciphertext, key, iv []byte) ([]byte, error) {
	plain, err := decryptBlocks(ciphertext, key, iv)
	if err != nil {
		return nil, err
	}
	return Unpad(plain)
}

// AESDecryptLenient 与 AESDecrypt 相同，但去填充沿用旧系统的宽松截断
func AESDecryptLenient(ciphertext, key, iv []byte) ([]byte, error) {
	plain, err := decryptBlocks(ciphertext, key, iv)
	if err != nil {
		return nil, err
	}
	return unpadLenient(plain), nil
}

func decryptBlocks(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrPadding, len(ciphertext))
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return plain, nil
}
