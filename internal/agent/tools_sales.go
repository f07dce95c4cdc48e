package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nidhogg/campus-assistant/internal/catalog"
	"github.com/nidhogg/campus-assistant/internal/enrollment"
	"go.uber.org/zap"
)

type listProgramsArgs struct {
	Level string `json:"level,omitempty" jsonschema:"nivel para filtrar: grado o postgrado"`
	Area  string `json:"area,omitempty" jsonschema:"área de interés para filtrar, por ejemplo salud o tecnología"`
}

type programArgs struct {
	Program string `json:"program" jsonschema:"nombre de la carrera tal como lo escribió el usuario"`
}

type optionalProgramArgs struct {
	Program string `json:"program,omitempty" jsonschema:"nombre de la carrera, si el usuario la menciona"`
}

type enrollmentArgs struct {
	Program  string `json:"program,omitempty" jsonschema:"carrera"`
	Group    string `json:"group,omitempty" jsonschema:"grupo o paralelo elegido"`
	FullName string `json:"full_name,omitempty" jsonschema:"nombres y apellidos completos"`
	IDNumber string `json:"id_number,omitempty" jsonschema:"cédula de 10 dígitos"`
	Phone    string `json:"phone,omitempty" jsonschema:"teléfono en formato +593XXXXXXXXX"`
	Email    string `json:"email,omitempty" jsonschema:"correo electrónico"`
}

type startEnrollmentArgs struct {
	Program  string `json:"program" jsonschema:"carrera en la que el usuario quiere matricularse"`
	Group    string `json:"group,omitempty" jsonschema:"grupo o paralelo elegido"`
	FullName string `json:"full_name,omitempty" jsonschema:"nombres y apellidos completos"`
	IDNumber string `json:"id_number,omitempty" jsonschema:"cédula de 10 dígitos"`
	Phone    string `json:"phone,omitempty" jsonschema:"teléfono en formato +593XXXXXXXXX"`
	Email    string `json:"email,omitempty" jsonschema:"correo electrónico"`
}

func (a enrollmentArgs) values() map[enrollment.Field]string {
	out := make(map[enrollment.Field]string)
	add := func(f enrollment.Field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out[f] = v
		}
	}
	add(enrollment.FieldGroup, a.Group)
	add(enrollment.FieldFullName, a.FullName)
	add(enrollment.FieldIDNumber, a.IDNumber)
	add(enrollment.FieldPhone, a.Phone)
	add(enrollment.FieldEmail, a.Email)
	return out
}

func (tk *toolkit) registerSales(r *ToolRegistry) {
	RegisterFunc(r, "list_programs",
		"Lista las carreras de la UBE, opcionalmente filtradas por nivel (grado, postgrado) o área.",
		tk.listPrograms)
	RegisterFunc(r, "program_detail",
		"Detalle de una carrera: título, jornadas, modalidades y precios.",
		tk.programDetail)
	RegisterFunc(r, "list_curriculum",
		"Malla curricular de una carrera por período académico.",
		tk.listCurriculum)
	RegisterFunc(r, "list_groups",
		"Grupos disponibles de una carrera con fecha de inicio, jornada y modalidad.",
		tk.listGroups)
	RegisterFunc(r, "enrollment_requirements",
		"Requisitos de matriculación, generales o para una carrera.",
		tk.requirements)
	RegisterFunc(r, "start_enrollment",
		"Inicia una matrícula en la carrera indicada. Devuelve los datos registrados y los pendientes.",
		func(ctx context.Context, args startEnrollmentArgs) (string, error) {
			return tk.enroll(ctx, true, enrollmentArgs(args))
		})
	RegisterFunc(r, "update_enrollment",
		"Registra datos de la matrícula en curso (grupo, nombres, cédula, teléfono, correo). Devuelve los datos registrados y los pendientes.",
		func(ctx context.Context, args enrollmentArgs) (string, error) {
			return tk.enroll(ctx, false, args)
		})
}

// resolveProgram returns the program for name, or the text to hand back to
// the model when it cannot be resolved.
func (tk *toolkit) resolveProgram(ctx context.Context, name string) (catalog.Program, string, bool) {
	snap, err := tk.deps.Catalog.Get(ctx)
	if err != nil {
		tk.logger.Warn("catalog unavailable", zap.Error(err))
		return catalog.Program{}, catalogDownText, false
	}
	var (
		p     catalog.Program
		found bool
	)
	if tk.deps.Resolver != nil {
		p, found, err = tk.deps.Resolver.Resolve(ctx, snap, name)
		if err != nil {
			tk.logger.Warn("program resolution failed", zap.String("name", name), zap.Error(err))
		}
	}
	if !found {
		return catalog.Program{}, fmt.Sprintf("No encontré la carrera %q. ¿Podrías verificar el nombre o quieres que liste las carreras disponibles?", name), false
	}
	return p, "", true
}

func (tk *toolkit) upstreamText(err error, what string) string {
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Sprintf("No hay %s disponible para esta carrera.", what)
	}
	tk.logger.Warn("catalog request failed", zap.String("what", what), zap.Error(err))
	return fmt.Sprintf("No pude consultar %s en este momento. Intenta nuevamente en unos minutos.", what)
}

func (tk *toolkit) listPrograms(ctx context.Context, args listProgramsArgs) (string, error) {
	snap, err := tk.deps.Catalog.Get(ctx)
	if err != nil {
		tk.logger.Warn("catalog unavailable", zap.Error(err))
		return catalogDownText, nil
	}
	level := catalog.Normalize(args.Level)
	area := catalog.Normalize(args.Area)

	var b strings.Builder
	for _, l := range snap.Levels {
		if level != "" && !strings.Contains(catalog.Normalize(l.Name), level) {
			continue
		}
		var section strings.Builder
		for _, a := range l.Areas {
			if area != "" && !strings.Contains(catalog.Normalize(a.Name), area) {
				continue
			}
			if len(a.Programs) == 0 {
				continue
			}
			fmt.Fprintf(&section, "### %s\n", a.Name)
			for _, p := range a.Programs {
				fmt.Fprintf(&section, "- %s\n", p.Name)
			}
		}
		if section.Len() > 0 {
			fmt.Fprintf(&b, "## %s\n%s\n", l.Name, section.String())
		}
	}
	if b.Len() == 0 {
		return "No hay carreras que coincidan con ese filtro.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (tk *toolkit) programDetail(ctx context.Context, args programArgs) (string, error) {
	p, msg, ok := tk.resolveProgram(ctx, args.Program)
	if !ok {
		return msg, nil
	}
	d, err := tk.deps.Details.Program(ctx, p.ID)
	if err != nil {
		return tk.upstreamText(err, "el detalle de la carrera"), nil
	}

	lines := []string{"Carrera: " + d.Name}
	if d.Title != "" {
		lines = append(lines, "Título: "+d.Title)
	}
	if len(d.Sessions) > 0 {
		lines = append(lines, "Jornadas: "+strings.Join(d.Sessions, ", "))
	}
	if len(d.Modes) > 0 {
		lines = append(lines, "Modalidades: "+strings.Join(d.Modes, ", "))
	}
	if pr := d.Pricing; pr != nil {
		lines = append(lines, "Precios:")
		if pr.EnrollmentFee > 0 {
			lines = append(lines, fmt.Sprintf("- Inscripción: $%.2f", pr.EnrollmentFee))
		}
		if pr.Tuition > 0 {
			lines = append(lines, fmt.Sprintf("- Matrícula: $%.2f", pr.Tuition))
		}
		if pr.Installments > 0 {
			line := fmt.Sprintf("- Cuotas: %d", pr.Installments)
			if pr.InstallmentAmount > 0 {
				line += fmt.Sprintf(" de $%.2f", pr.InstallmentAmount)
			}
			lines = append(lines, line)
		}
		if pr.PlacementFee > 0 {
			lines = append(lines, fmt.Sprintf("- Homologación: $%.2f", pr.PlacementFee))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (tk *toolkit) listCurriculum(ctx context.Context, args programArgs) (string, error) {
	p, msg, ok := tk.resolveProgram(ctx, args.Program)
	if !ok {
		return msg, nil
	}
	levels, err := tk.deps.Details.Curriculum(ctx, p.ID)
	if err != nil {
		return tk.upstreamText(err, "la malla curricular"), nil
	}
	if len(levels) == 0 {
		return "No hay malla disponible para esta carrera.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Malla curricular de %s:\n", p.Name)
	for _, l := range levels {
		fmt.Fprintf(&b, "\n## %s\n", l.Name)
		for _, s := range l.Subjects {
			fmt.Fprintf(&b, "- %s (%g horas", s.Name, s.Hours)
			if s.Credits > 0 {
				fmt.Fprintf(&b, ", %d créditos", s.Credits)
			}
			b.WriteString(")\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (tk *toolkit) listGroups(ctx context.Context, args programArgs) (string, error) {
	p, msg, ok := tk.resolveProgram(ctx, args.Program)
	if !ok {
		return msg, nil
	}
	groups, err := tk.deps.Details.Groups(ctx, p.ID)
	if err != nil {
		return tk.upstreamText(err, "los grupos"), nil
	}
	if len(groups) == 0 {
		return "No hay grupos disponibles que inicien clases próximamente.", nil
	}
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, fmt.Sprintf("Grupos disponibles de %s:", p.Name))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("- Paralelo: %s, inicio aproximado: %s, jornada: %s, modalidad: %s",
			g.Name, g.StartDate, g.Session, g.Mode))
	}
	return strings.Join(lines, "\n"), nil
}

func (tk *toolkit) requirements(ctx context.Context, args optionalProgramArgs) (string, error) {
	if strings.TrimSpace(args.Program) == "" {
		return requirementsText, nil
	}
	p, msg, ok := tk.resolveProgram(ctx, args.Program)
	if !ok {
		return msg + "\n\n" + requirementsText, nil
	}
	return fmt.Sprintf("Requisitos para %s:\n\n%s\n\nPueden variar según la carrera; confirma con admisiones (%s).",
		p.Name, requirementsText, admissionsMail), nil
}

// enroll applies args to the conversation's enrollment. Network calls are
// made outside the session lock.
func (tk *toolkit) enroll(ctx context.Context, start bool, args enrollmentArgs) (string, error) {
	var (
		rejected  []enrollment.Rejection
		program   catalog.Program
		haveProg  bool
		programID int
		active    bool
	)

	if name := strings.TrimSpace(args.Program); name != "" {
		p, msg, ok := tk.resolveProgram(ctx, name)
		if ok {
			program, haveProg = p, true
		} else {
			rejected = append(rejected, enrollment.Rejection{
				Field:  enrollment.FieldProgram,
				Value:  name,
				Reason: strings.TrimSuffix(msg, "."),
			})
		}
	}

	tk.session.Enrollment(func(p *enrollment.Progress) {
		if start {
			p.Reset()
		}
		active = p.Active()
		programID = p.ProgramID
	})
	if !start && !active && !haveProg {
		return "No hay una matrícula en curso. Pregunta al usuario en qué carrera desea matricularse y usa start_enrollment.", nil
	}
	if haveProg {
		programID = program.ID
	}

	values := args.values()
	if g, ok := values[enrollment.FieldGroup]; ok && programID != 0 {
		name, rej := tk.matchGroup(ctx, programID, g)
		if rej != nil {
			rejected = append(rejected, *rej)
			delete(values, enrollment.FieldGroup)
		} else {
			values[enrollment.FieldGroup] = name
		}
	}

	var (
		summary  string
		complete bool
		captured map[enrollment.Field]string
	)
	tk.session.Enrollment(func(p *enrollment.Progress) {
		if haveProg {
			if p.ProgramID != program.ID {
				// groups belong to a program; personal data does not
				p.Unset(enrollment.FieldGroup)
			}
			p.ProgramID = program.ID
			if err := p.Set(enrollment.FieldProgram, program.Name); err != nil {
				rejected = append(rejected, enrollment.Reject(enrollment.FieldProgram, program.Name, err))
			}
		}
		rejected = append(rejected, p.Apply(values)...)
		summary = p.Summary(rejected)
		complete = p.Complete()
		captured = p.Values()
		programID = p.ProgramID
	})
	if !complete {
		return summary, nil
	}
	return tk.submit(ctx, programID, captured, summary)
}

func (tk *toolkit) matchGroup(ctx context.Context, programID int, value string) (string, *enrollment.Rejection) {
	groups, err := tk.deps.Details.Groups(ctx, programID)
	if err != nil || len(groups) == 0 {
		// cannot validate; keep as given
		return value, nil
	}
	want := catalog.Normalize(value)
	names := make([]string, len(groups))
	for i, g := range groups {
		if catalog.Normalize(g.Name) == want {
			return g.Name, nil
		}
		names[i] = g.Name
	}
	rej := enrollment.Rejection{
		Field:  enrollment.FieldGroup,
		Value:  value,
		Reason: "los grupos disponibles son " + strings.Join(names, ", "),
	}
	return "", &rej
}

func (tk *toolkit) submit(ctx context.Context, programID int, v map[enrollment.Field]string, summary string) (string, error) {
	if tk.deps.Enrollments == nil {
		return summary + "\n\nUn asesor de admisiones (" + admissionsMail + ") se comunicará contigo para completar la matrícula.", nil
	}
	receipt, err := tk.deps.Enrollments.SubmitEnrollment(ctx, catalog.Enrollment{
		ProgramID: programID,
		Program:   v[enrollment.FieldProgram],
		Group:     v[enrollment.FieldGroup],
		FullName:  v[enrollment.FieldFullName],
		IDNumber:  v[enrollment.FieldIDNumber],
		Phone:     v[enrollment.FieldPhone],
		Email:     v[enrollment.FieldEmail],
	})
	if err != nil {
		tk.logger.Warn("enrollment submission failed", zap.Int("program_id", programID), zap.Error(err))
		return summary + "\n\nNo se pudo enviar la matrícula en este momento. Los datos siguen guardados; intenta nuevamente en unos minutos.", nil
	}
	tk.session.Enrollment(func(p *enrollment.Progress) { p.Reset() })

	var b strings.Builder
	fmt.Fprintf(&b, "Matrícula registrada para %s.", v[enrollment.FieldProgram])
	if receipt.Reference != "" {
		fmt.Fprintf(&b, "\nReferencia: %s", receipt.Reference)
	}
	if receipt.PaymentURL != "" {
		fmt.Fprintf(&b, "\nRealiza el pago aquí: %s", receipt.PaymentURL)
	}
	b.WriteString("\nTu matrícula se confirmará una vez recibido el pago.")
	return b.String(), nil
}
