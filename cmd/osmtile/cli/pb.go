// Copyright 2017-26 the original author or authors.
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

package cli

import (
	"fmt"
	"io"
	"os"

	pb "gopkg.in/cheggaaa/pb.v1"
)

const (
	progressWidth = 79
	clearLine     = "\033[2K\r"
)

// progressBar tracks how much of an input file a processing pass has read.
type progressBar struct {
	r   io.ReadCloser
	bar *pb.ProgressBar
}

// WrapInputFile reports the bytes read from f on stderr behind the given
// label.  Stdin has no known size and is returned as is.
func WrapInputFile(f *os.File, label string) (io.ReadCloser, error) {
	if f == os.Stdin {
		return os.Stdin, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bar := pb.New64(fi.Size()).
		Prefix(label).
		SetUnits(pb.U_BYTES_DEC).
		SetWidth(progressWidth)
	bar.Output = os.Stderr
	bar.ShowSpeed = true
	bar.Start()

	return progressBar{
		r:   bar.NewProxyReader(f),
		bar: bar,
	}, nil
}

func (p progressBar) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Close closes the file and erases the bar so the next pass starts on a
// clean line.
func (p progressBar) Close() error {
	p.bar.Output = nil
	p.bar.NotPrint = true
	p.bar.Finish()

	fmt.Fprint(os.Stderr, clearLine)

	return p.r.Close()
}
