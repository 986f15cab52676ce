package twister

// the methods in this file adapt a Twister to the axis oriented interfaces of
// generichttp/motion.  The only axis is Axis; "" is accepted as an alias.

func checkAxis(axis string) error {
	if axis != Axis && axis != "" {
		return ErrUnknownAxis
	}
	return nil
}

// GetPos returns the angle of the axis
func (t *Twister) GetPos(axis string) (float64, error) {
	if err := checkAxis(axis); err != nil {
		return 0, err
	}
	return t.Angle(), nil
}

// MoveAbs rotates the axis to an absolute angle
func (t *Twister) MoveAbs(axis string, pos float64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	_, err := t.RotateAbs(pos)
	return err
}

// MoveRel rotates the axis by a relative angle
func (t *Twister) MoveRel(axis string, delta float64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	_, err := t.RotateRel(delta)
	return err
}

// Home defines the current angle of the axis as zero.  The turntable has no
// home switch, so nothing moves.
func (t *Twister) Home(axis string) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	t.Zero()
	return nil
}

// Initialize resets the Arduino behind the axis
func (t *Twister) Initialize(axis string) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	return t.ResetDevice()
}
