package envelope

// defaultKeyStore 进程级密钥缓存
var defaultKeyStore = NewKeyStore()

// Options 加解密与签章所需的凭证
type Options struct {
	PrivateKeyPath string
	PublicKeyPath  string
	AESKey         []byte
	AESIV          []byte
	LenientPadding bool
}

// Codec 绑定一组凭证的加解密、签章工具，无可变状态，可并发使用
type Codec struct {
	opts Options
	keys *KeyStore
}

// NewCodec keys 为 nil 时使用进程级缓存
func NewCodec(opts Options, keys *KeyStore) *Codec {
	if keys == nil {
		keys = defaultKeyStore
	}
	return &Codec{opts: opts, keys: keys}
}

func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	return AESEncrypt(plaintext, c.opts.AESKey, c.opts.AESIV)
}

func (c *Codec) Decrypt(ciphertext []byte) ([]byte, error) {
	if c.opts.LenientPadding {
		return AESDecryptLenient(ciphertext, c.opts.AESKey, c.opts.AESIV)
	}
	return AESDecrypt(ciphertext, c.opts.AESKey, c.opts.AESIV)
}

// Sign 使用客户端私钥签名
func (c *Codec) Sign(data []byte) (string, error) {
	key, err := c.keys.PrivateKey(c.opts.PrivateKeyPath)
	if err != nil {
		return "", err
	}
	return Sign(data, key)
}

// Verify 使用对方公钥验签，只有公钥加载失败才返回 error
func (c *Codec) Verify(data []byte, signature string) (bool, error) {
	key, err := c.keys.PublicKey(c.opts.PublicKeyPath)
	if err != nil {
		return false, err
	}
	return Verify(data, signature, key), nil
}
