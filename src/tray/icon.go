package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 32

var (
	iconFrame  = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	iconAccent = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// IconPNG draws the tray icon: a selection frame with a dot in the middle.
func IconPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			edge := x < 3 || y < 3 || x >= iconSize-3 || y >= iconSize-3
			corner := (x < 3 || x >= iconSize-3) && (y < 3 || y >= iconSize-3)
			switch {
			case edge && !corner:
				img.SetNRGBA(x, y, iconFrame)
			case corner:
				img.SetNRGBA(x, y, iconAccent)
			}
			dx, dy := x-iconSize/2, y-iconSize/2
			if dx*dx+dy*dy <= 25 {
				img.SetNRGBA(x, y, iconFrame)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO packs a PNG into a single-image ICO container, which Windows
// requires for tray icons.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bpp
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
