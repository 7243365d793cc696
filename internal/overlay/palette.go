package overlay

// Label colors, BGR order for OpenCV. The values are matplotlib's tab20
// cycle, which the original overlay figures used; labels cycle through it
// so adjacent label IDs get visually distinct colors.
var palette = [][3]uint8{
	{180, 119, 31},
	{232, 199, 174},
	{14, 127, 255},
	{120, 187, 255},
	{44, 160, 44},
	{138, 223, 152},
	{40, 39, 214},
	{150, 152, 255},
	{189, 103, 148},
	{213, 176, 197},
	{75, 86, 140},
	{148, 156, 196},
	{194, 119, 227},
	{210, 182, 247},
	{127, 127, 127},
	{199, 199, 199},
	{34, 189, 188},
	{141, 219, 219},
	{207, 190, 23},
	{229, 218, 158},
}

// colorFor maps a positive label to its palette color. Label 0 is background
// and must be excluded by the caller.
func colorFor(label uint16) (b, g, r uint8) {
	c := palette[int(label-1)%len(palette)]
	return c[0], c[1], c[2]
}
