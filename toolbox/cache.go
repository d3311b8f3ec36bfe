package toolbox

// Cache memoizes partial derivatives of the cost during one backward pass.
//
// Values live in a Network of the trained network's geometry, so the cache
// can be inspected like any network.  Whether a slot has been computed is
// tracked separately from its value: a NaN produced by a degenerate cost or
// activation derivative is a cached result, not a miss.  Uncomputed slots
// hold NaN.
type Cache struct {
	net *Network

	// Per layer, one flag per element of the matching AF32.
	z, a, w, b [][]bool
}

func MakeCache(geometry Geometry) *Cache {
	c := &Cache{
		net: MakeNetwork(geometry),
		z:   make([][]bool, len(geometry)),
		a:   make([][]bool, len(geometry)),
		w:   make([][]bool, len(geometry)),
		b:   make([][]bool, len(geometry)),
	}
	for i, lay := range c.net.Layers {
		c.a[i] = make([]bool, len(lay.A.V))
		if i > 0 {
			c.z[i] = make([]bool, len(lay.Z.V))
			c.w[i] = make([]bool, len(lay.W.V))
			c.b[i] = make([]bool, len(lay.B.V))
		}
	}
	return c
}

// Network returns the cached values.  Uncomputed slots are NaN.
func (c *Cache) Network() *Network {
	return c.net
}

// Reset marks every slot uncomputed.
func (c *Cache) Reset() {
	c.net.Reset()
	for i := range c.net.Layers {
		clear(c.z[i])
		clear(c.a[i])
		clear(c.w[i])
		clear(c.b[i])
	}
}

func (c *Cache) Z(ilayer, inode int) (float32, bool) {
	v := c.net.Z(ilayer, inode)
	return v, c.z[ilayer][inode]
}

func (c *Cache) SetZ(ilayer, inode int, v float32) {
	c.net.SetZ(ilayer, inode, v)
	c.z[ilayer][inode] = true
}

func (c *Cache) A(ilayer, inode int) (float32, bool) {
	v := c.net.A(ilayer, inode)
	return v, c.a[ilayer][inode]
}

func (c *Cache) SetA(ilayer, inode int, v float32) {
	c.net.SetA(ilayer, inode, v)
	c.a[ilayer][inode] = true
}

func (c *Cache) W(ilayer, ifrom, ito int) (float32, bool) {
	v := c.net.W(ilayer, ifrom, ito)
	return v, c.w[ilayer][ifrom*c.net.LayerSize(ilayer)+ito]
}

func (c *Cache) SetW(ilayer, ifrom, ito int, v float32) {
	c.net.SetW(ilayer, ifrom, ito, v)
	c.w[ilayer][ifrom*c.net.LayerSize(ilayer)+ito] = true
}

func (c *Cache) B(ilayer, ifrom, ito int) (float32, bool) {
	v := c.net.B(ilayer, ifrom, ito)
	return v, c.b[ilayer][ifrom*c.net.LayerSize(ilayer)+ito]
}

func (c *Cache) SetB(ilayer, ifrom, ito int, v float32) {
	c.net.SetB(ilayer, ifrom, ito, v)
	c.b[ilayer][ifrom*c.net.LayerSize(ilayer)+ito] = true
}
