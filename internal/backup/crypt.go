// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package backup

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
)

// Encrypted archives are laid out as
//
//	version(1) | iv(16) | aes salt(32) | hmac salt(32) | AES-CTR ciphertext | HMAC-SHA512(64)
//
// where the HMAC covers everything after the version byte.
const (
	cryptVersion byte = 0x1
	bufferSize        = 16 * 1024
	ivSize            = 16
	saltSize          = 32
	hmacSize          = sha512.Size
)

var (
	// ErrInvalidHMAC is returned when the password is wrong or the file was
	// altered.
	ErrInvalidHMAC = errors.New("invalid HMAC: wrong password or corrupted archive")
	errTruncated   = errors.New("encrypted archive is truncated")
)

func deriveKey(password, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	key, err := scrypt.Key(password, salt, 32768, 8, 1, 32)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}

// Encrypt streams in to out with AES-CTR and appends an HMAC-SHA512 tag.
func Encrypt(in io.Reader, out io.Writer, password []byte) error {
	keyAES, saltAES, err := deriveKey(password, nil)
	if err != nil {
		return err
	}
	keyHMAC, saltHMAC, err := deriveKey(password, nil)
	if err != nil {
		return err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return err
	}
	block, err := aes.NewCipher(keyAES)
	if err != nil {
		return err
	}
	ctr := cipher.NewCTR(block, iv)
	mac := hmac.New(sha512.New, keyHMAC)

	if _, err := out.Write([]byte{cryptVersion}); err != nil {
		return err
	}
	w := io.MultiWriter(out, mac)
	for _, b := range [][]byte{iv, saltAES, saltHMAC} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}

	buf := make([]byte, bufferSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			ctr.XORKeyStream(buf[:n], buf[:n])
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	_, err = out.Write(mac.Sum(nil))
	return err
}

// Decrypt reverses Encrypt. Output written before ErrInvalidHMAC is
// returned must be discarded.
func Decrypt(in io.Reader, out io.Writer, password []byte) error {
	br := bufio.NewReaderSize(in, bufferSize+hmacSize)

	header := make([]byte, 1+ivSize+2*saltSize)
	if _, err := io.ReadFull(br, header); err != nil {
		return errTruncated
	}
	if header[0] != cryptVersion {
		return fmt.Errorf("unsupported archive encryption version %d", header[0])
	}
	iv := header[1 : 1+ivSize]
	saltAES := header[1+ivSize : 1+ivSize+saltSize]
	saltHMAC := header[1+ivSize+saltSize:]

	keyAES, _, err := deriveKey(password, saltAES)
	if err != nil {
		return err
	}
	keyHMAC, _, err := deriveKey(password, saltHMAC)
	if err != nil {
		return err
	}
	block, err := aes.NewCipher(keyAES)
	if err != nil {
		return err
	}
	ctr := cipher.NewCTR(block, iv)
	mac := hmac.New(sha512.New, keyHMAC)
	mac.Write(header[1:])

	plain := make([]byte, bufferSize)
	for {
		// Always hold back the trailing tag.
		b, perr := br.Peek(bufferSize + hmacSize)
		if len(b) > hmacSize {
			chunk := b[:len(b)-hmacSize]
			mac.Write(chunk)
			ctr.XORKeyStream(plain[:len(chunk)], chunk)
			if _, err := out.Write(plain[:len(chunk)]); err != nil {
				return err
			}
			if _, err := br.Discard(len(chunk)); err != nil {
				return err
			}
		}
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return perr
		}
	}

	tag, _ := br.Peek(hmacSize)
	if len(tag) != hmacSize {
		return errTruncated
	}
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return ErrInvalidHMAC
	}
	return nil
}

// EncryptFile writes the encrypted form of src to dst.
func EncryptFile(src, dst string, password []byte) error {
	return transformFile(src, dst, password, Encrypt)
}

// DecryptFile writes the plaintext of src to dst. dst is removed when the
// tag does not verify.
func DecryptFile(src, dst string, password []byte) error {
	return transformFile(src, dst, password, Decrypt)
}

func transformFile(src, dst string, password []byte, fn func(io.Reader, io.Writer, []byte) error) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	if err := fn(bufio.NewReader(in), bw, password); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := bw.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
