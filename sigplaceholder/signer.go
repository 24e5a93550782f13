package sigplaceholder

import (
	"crypto"
	"crypto/x509"

	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/pkcs12"

	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// Signer turns the concatenated signed-data byte ranges into a
// detached CMS/PKCS#7 blob to embed in /Contents.
type Signer interface {
	Sign(signedData []byte) ([]byte, error)
}

// PKCS7Signer signs with an RSA or ECDSA private key and certificate
// chain, producing the detached SHA-256 PKCS#7 blob that Acrobat-
// compatible readers expect under /SubFilter /adbe.pkcs7.detached.
type PKCS7Signer struct {
	Key   crypto.PrivateKey
	Certs []*x509.Certificate // Certs[0] is the signer's own leaf certificate
}

// Sign implements Signer.
func (s *PKCS7Signer) Sign(signedData []byte) ([]byte, error) {
	if len(s.Certs) == 0 {
		return nil, pdferr.Invariant("PKCS7Signer has no certificate")
	}
	sd, err := pkcs7.NewSignedData(signedData)
	if err != nil {
		return nil, pdferr.Wrapf(err, "building PKCS#7 signed data")
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	var chain []*x509.Certificate
	if len(s.Certs) > 1 {
		chain = s.Certs[1:]
	}
	if err := sd.AddSignerChain(s.Certs[0], s.Key, chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, pdferr.Wrapf(err, "adding PKCS#7 signer chain")
	}
	sd.Detach()
	blob, err := sd.Finish()
	if err != nil {
		return nil, pdferr.Wrapf(err, "finishing PKCS#7 signed data")
	}
	return blob, nil
}

// LoadPKCS12 extracts a private key and the full certificate chain
// from a PKCS#12 keystore, for building a PKCS7Signer.
func LoadPKCS12(p12 []byte, password string) (crypto.PrivateKey, []*x509.Certificate, error) {
	blocks, err := pkcs12.ToPEM(p12, password)
	if err != nil {
		return nil, nil, pdferr.Wrapf(err, "decoding PKCS#12 keystore")
	}

	var key crypto.PrivateKey
	var certs []*x509.Certificate
	for _, block := range blocks {
		switch block.Type {
		case "PRIVATE KEY":
			k, perr := x509.ParsePKCS8PrivateKey(block.Bytes)
			if perr != nil {
				if k2, err2 := x509.ParsePKCS1PrivateKey(block.Bytes); err2 == nil {
					k = k2
				} else if k3, err3 := x509.ParseECPrivateKey(block.Bytes); err3 == nil {
					k = k3
				} else {
					return nil, nil, pdferr.Wrapf(perr, "parsing PKCS#12 private key")
				}
			}
			key = k
		case "CERTIFICATE":
			cert, cerr := x509.ParseCertificate(block.Bytes)
			if cerr != nil {
				return nil, nil, pdferr.Wrapf(cerr, "parsing PKCS#12 certificate")
			}
			certs = append(certs, cert)
		}
	}
	if key == nil {
		return nil, nil, pdferr.Placeholder("PKCS#12 keystore contained no private key")
	}
	if len(certs) == 0 {
		return nil, nil, pdferr.Placeholder("PKCS#12 keystore contained no certificates")
	}
	return key, certs, nil
}

// ApplyPlaceholders locates the first /ByteRange and /Contents
// placeholder pair in data, computes and patches the /ByteRange,
// signs the resulting byte ranges with signer, and patches /Contents
// with the signature blob. data is mutated in place.
func ApplyPlaceholders(data []byte, signer Signer) error {
	return ApplyPlaceholderField(data, 0, signer)
}

// ApplyPlaceholderField applies the (fieldIndex)-th independent
// /ByteRange + /Contents placeholder pair found in data, supporting
// documents with more than one signature field (spec §4.9, extended
// per the multi-signature supplement). fieldIndex is 0-based, in the
// order the placeholders appear in the file.
func ApplyPlaceholderField(data []byte, fieldIndex int, signer Signer) error {
	brSpans := FindAllByteRangePlaceholders(data)
	if fieldIndex < 0 || fieldIndex >= len(brSpans) {
		return pdferr.Placeholder("no unpatched /ByteRange placeholder at field index %d", fieldIndex)
	}
	br := brSpans[fieldIndex]

	contents, err := FindContentsPlaceholder(data, br.End)
	if err != nil {
		return err
	}

	length1, offset2, length2 := ComputeByteRange(len(data), contents)
	if err := PatchByteRange(data, br, length1, offset2, length2); err != nil {
		return err
	}

	signedData := make([]byte, 0, length1+length2)
	signedData = append(signedData, data[:length1]...)
	signedData = append(signedData, data[offset2:]...)

	sig, err := signer.Sign(signedData)
	if err != nil {
		return err
	}

	return PatchContents(data, contents, sig)
}
