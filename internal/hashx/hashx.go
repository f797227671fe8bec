// Copyright 2026 The pvcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hashx

import (
	"crypto"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// SHA256File returns the lowercase hex SHA-256 digest of the file at path,
// the hash recorded for every LocalArchive and used to dedup remote
// downloads by content.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()
	h := NewTypedHash(crypto.SHA256)
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "hashing file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Reader is SHA256File for an already-open reader.
func SHA256Reader(r io.Reader) (string, error) {
	h := NewTypedHash(crypto.SHA256)
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "hashing reader")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
