package core

// DecodeStream returns s's payload with its /Filter chain undone,
// caching the result until the raw bytes are replaced via
// SetRawStream. Callers outside this package (writer, contentstream,
// document) go through this rather than decodeFilters directly.
func DecodeStream(s *PdfObjectStream) ([]byte, error) {
	if s.decodedValid {
		return s.decodedCache, nil
	}
	decoded, err := decodeFilters(s.PdfObjectDictionary, s.Stream)
	if err != nil {
		return nil, err
	}
	s.decodedCache = decoded
	s.decodedValid = true
	return decoded, nil
}

// EncodeStream runs decoded through the filter chain named by dict,
// the inverse of decodeFilters. Used when building a stream object
// from scratch (content streams, object streams, the DSS writer).
func EncodeStream(dict *PdfObjectDictionary, decoded []byte) ([]byte, error) {
	return encodeFilters(dict, decoded)
}

// SetDecodedStream replaces s's content with encoded, applying dict's
// /Filter chain, and primes the decode cache with the plaintext the
// caller already has in hand.
func SetDecodedStream(s *PdfObjectStream, decoded []byte) error {
	encoded, err := EncodeStream(s.PdfObjectDictionary, decoded)
	if err != nil {
		return err
	}
	s.Stream = encoded
	s.decodedCache = decoded
	s.decodedValid = true
	return nil
}
