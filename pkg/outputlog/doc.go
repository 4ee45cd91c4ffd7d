// Package outputlog records several byte streams into one transcript and
// reads them back. The stream simulator uses it as its sink: every byte a
// scripted stream hands out is recorded on "stdout", every consumed answer on
// "stdin".
//
// # Format
//
// Each record is
//
//	stream timestamp length: content\n
//
// where
//
//   - stream matches [a-zA-Z0-9_./-]{1,64}, for example stdout or stdin.
//   - timestamp is UTC in the layout 2006-01-02T15:04:05.000000000Z.
//   - length is the byte length of content.
//   - content is exactly length raw bytes. It may contain newlines, NUL bytes
//     or any other value, which is why the length is stored.
//   - a single \n separator always follows the content.
//
// Examples:
//
//	stdout 2025-01-07T12:34:56.789000000Z 9: Welcome!\n\n
//	stdout 2025-01-07T12:34:56.790000000Z 10: Password? \n
//	stdin 2025-01-07T12:34:58.000000000Z 9: password\n\n
package outputlog
